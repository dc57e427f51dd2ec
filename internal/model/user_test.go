package model

import "testing"

func TestSplitName(t *testing.T) {
	tests := []struct {
		full      string
		wantFirst string
		wantLast  string
	}{
		{"Ada Lovelace", "Ada", "Lovelace"},
		{"Ada King Lovelace", "Ada", "King Lovelace"},
		{"octocat", "octocat", ""},
		{"  spaced   out  ", "spaced", "out"},
		{"", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.full, func(t *testing.T) {
			first, last := SplitName(tt.full)
			if first != tt.wantFirst || last != tt.wantLast {
				t.Errorf("SplitName(%q) = (%q, %q), want (%q, %q)",
					tt.full, first, last, tt.wantFirst, tt.wantLast)
			}
		})
	}
}

func TestGenderValid(t *testing.T) {
	for _, g := range []Gender{GenderMale, GenderFemale, GenderOther} {
		if !g.Valid() {
			t.Errorf("%q.Valid() = false, want true", g)
		}
	}
	for _, g := range []Gender{"", "unknown", "Male"} {
		if g.Valid() {
			t.Errorf("%q.Valid() = true, want false", g)
		}
	}
}

func TestProfileUpdateApply(t *testing.T) {
	u := &User{Email: "a@b.com", FirstName: "Old", LastName: "Name", Phone: "123"}
	first := "New"
	gender := GenderFemale

	ProfileUpdate{FirstName: &first, Gender: &gender}.Apply(u)

	if u.FirstName != "New" {
		t.Errorf("FirstName = %q, want %q", u.FirstName, "New")
	}
	if u.Gender != GenderFemale {
		t.Errorf("Gender = %q, want %q", u.Gender, GenderFemale)
	}
	// Untouched fields survive.
	if u.LastName != "Name" || u.Phone != "123" || u.Email != "a@b.com" {
		t.Errorf("Apply() changed fields it should not: %+v", u)
	}
}

func TestProfileUpdateIsEmpty(t *testing.T) {
	if !(ProfileUpdate{}).IsEmpty() {
		t.Error("zero ProfileUpdate should be empty")
	}
	addr := "1 Queen St"
	if (ProfileUpdate{Address: &addr}).IsEmpty() {
		t.Error("ProfileUpdate with Address should not be empty")
	}
}
