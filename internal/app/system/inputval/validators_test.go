package inputval

import "testing"

func TestIsValidObjectID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"507f1f77bcf86cd799439011", true},
		{"000000000000000000000000", true},
		{"FFFFFFFFFFFFFFFFFFFFFFFF", true},
		{"  507f1f77bcf86cd799439011  ", true},

		{"", false},
		{"507f1f77bcf86cd79943901", false},
		{"507f1f77bcf86cd7994390111", false},
		{"507f1f77bcf86cd79943901g", false},
		{"not-a-valid-id", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got := IsValidObjectID(tt.id)
			if got != tt.want {
				t.Errorf("IsValidObjectID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	type TestInput struct {
		Name  string `validate:"required,max=10" label:"Full name"`
		Email string `validate:"required,email" label:"Email address"`
	}

	tests := []struct {
		name       string
		input      TestInput
		wantErrors bool
		wantFirst  string
	}{
		{
			name:  "valid input",
			input: TestInput{Name: "John", Email: "john@example.com"},
		},
		{
			name:       "missing name",
			input:      TestInput{Name: "", Email: "john@example.com"},
			wantErrors: true,
			wantFirst:  "Full name is required.",
		},
		{
			name:       "name too long",
			input:      TestInput{Name: "VeryLongNameThatExceedsLimit", Email: "john@example.com"},
			wantErrors: true,
			wantFirst:  "Full name must be at most 10 characters.",
		},
		{
			name:       "invalid email",
			input:      TestInput{Name: "John", Email: "not-an-email"},
			wantErrors: true,
			wantFirst:  "A valid email address is required.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.input)
			if result.HasErrors() != tt.wantErrors {
				t.Errorf("HasErrors = %v, want %v (%s)", result.HasErrors(), tt.wantErrors, result.All())
			}
			if tt.wantErrors && result.First() != tt.wantFirst {
				t.Errorf("First() = %q, want %q", result.First(), tt.wantFirst)
			}
		})
	}
}

func TestResult_All(t *testing.T) {
	r := &Result{}
	if r.All() != "" {
		t.Errorf("All() = %q, want empty", r.All())
	}
	r.Errors = []FieldError{{Message: "Error 1"}, {Message: "Error 2"}}
	if want := "Error 1; Error 2"; r.All() != want {
		t.Errorf("All() = %q, want %q", r.All(), want)
	}
}

func TestValidate_CustomRules(t *testing.T) {
	type PledgeInput struct {
		ProjectID string `validate:"required,objectid" label:"Project"`
		Amount    string `validate:"required,amount" label:"Amount"`
	}
	type InviteInput struct {
		Type       string `validate:"required,invitetype" label:"Type"`
		Visibility int    `validate:"visibility" label:"Visibility"`
	}

	tests := []struct {
		name    string
		input   any
		wantErr bool
	}{
		{"valid pledge", PledgeInput{ProjectID: "507f1f77bcf86cd799439011", Amount: "500"}, false},
		{"bad project id", PledgeInput{ProjectID: "nope", Amount: "500"}, true},
		{"non-numeric amount", PledgeInput{ProjectID: "507f1f77bcf86cd799439011", Amount: "lots"}, true},
		{"valid invite", InviteInput{Type: "investor", Visibility: -1}, false},
		{"bad invite type", InviteInput{Type: "admin"}, true},
		{"visibility out of range", InviteInput{Type: "issuer", Visibility: 7}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.input)
			if res.HasErrors() != tt.wantErr {
				t.Errorf("HasErrors = %v, want %v (%s)", res.HasErrors(), tt.wantErr, res.All())
			}
		})
	}
}
