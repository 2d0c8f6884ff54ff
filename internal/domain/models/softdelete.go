package models

// LoadMode selects which side of a soft-delete partition a load returns.
// Live and Deleted partition every soft-deletable collection: each record
// appears in exactly one of the two.
type LoadMode int

const (
	LoadLive LoadMode = iota
	LoadDeleted
)

// Deleted is the value of the "deleted" flag matched by m.
func (m LoadMode) Deleted() bool { return m == LoadDeleted }

// ParseLoadMode maps "deleted" to LoadDeleted and anything else to LoadLive.
func ParseLoadMode(s string) LoadMode {
	if s == "deleted" {
		return LoadDeleted
	}
	return LoadLive
}

// IsDeleted reports whether the reply was soft deleted.
func (r CommentReply) IsDeleted() bool { return r.Deleted }

func (f Forum) IsDeleted() bool       { return f.Deleted }
func (t ForumThread) IsDeleted() bool { return t.Deleted }
func (r ThreadReply) IsDeleted() bool { return r.Deleted }
