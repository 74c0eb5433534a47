package leads

import (
	"strings"
	"testing"
)

func TestValidateWellFormed(t *testing.T) {
	errs := Validate(Submission{Name: "Ana Silva", Phone: "(11) 99999-8888", Email: "ana@example.com"})
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestValidateReportsAllFieldsAtOnce(t *testing.T) {
	errs := Validate(Submission{Name: "Jo", Phone: "11999", Email: "x"})
	if errs[FieldName] != MsgNameTooShort {
		t.Errorf("expected short name error, got %q", errs[FieldName])
	}
	if errs[FieldPhone] != MsgPhoneInvalid {
		t.Errorf("expected phone error, got %q", errs[FieldPhone])
	}
	if errs[FieldEmail] != MsgEmailInvalid {
		t.Errorf("expected email error, got %q", errs[FieldEmail])
	}
	if got := errs.Fields(); len(got) != 3 || got[0] != FieldEmail {
		t.Errorf("expected sorted fields, got %v", got)
	}
	if !strings.Contains(errs.Error(), "name: ") {
		t.Errorf("expected error text to name the field, got %q", errs.Error())
	}
}

func TestValidateRequired(t *testing.T) {
	errs := Validate(Submission{})
	if errs[FieldName] != MsgNameRequired || errs[FieldPhone] != MsgPhoneRequired || errs[FieldEmail] != MsgEmailRequired {
		t.Fatalf("expected required messages, got %v", errs)
	}
}

func TestValidatePhoneBounds(t *testing.T) {
	cases := map[string]bool{
		"1199998888":       true,
		"11999998888":      true,
		"+55 11 99999-888": false,
		"119999988889":     false,
		"123456789":        false,
	}
	for phone, valid := range cases {
		got := ValidateField(FieldPhone, phone) == ""
		if got != valid {
			t.Errorf("phone %q valid=%v, want %v", phone, got, valid)
		}
	}
}

func TestValidateNameIgnoresMarkup(t *testing.T) {
	if msg := ValidateField(FieldName, "<b>Jo</b>"); msg != MsgNameTooShort {
		t.Fatalf("expected markup stripped before length check, got %q", msg)
	}
	if got := SanitizeName("  Ana   <i>Silva</i> "); got != "Ana Silva" {
		t.Fatalf("unexpected sanitized name %q", got)
	}
	if got := SanitizeName("João & Maria"); got != "João & Maria" {
		t.Fatalf("expected entities unescaped, got %q", got)
	}
}

func TestNormalizePhone(t *testing.T) {
	if got := NormalizePhone("(11) 99999-8888"); got != "11999998888" {
		t.Fatalf("unexpected digits %q", got)
	}
}

func TestE164(t *testing.T) {
	cases := []struct {
		raw, code, want string
	}{
		{"(11) 99999-8888", "55", "+5511999998888"},
		{"5511999998888", "55", "+5511999998888"},
		{"551199998888", "55", "+551199998888"},
		{"5599998888", "55", "+555599998888"},
		{"11999998888", "", "+11999998888"},
		{"", "55", ""},
	}
	for _, tc := range cases {
		if got := E164(tc.raw, tc.code); got != tc.want {
			t.Errorf("E164(%q, %q) = %q, want %q", tc.raw, tc.code, got, tc.want)
		}
	}
}

func TestFormatPhoneMask(t *testing.T) {
	cases := map[string]string{
		"":                "",
		"1":               "(1",
		"11":              "(11",
		"119":             "(11) 9",
		"119999":          "(11) 9999",
		"1199998":         "(11) 9999-8",
		"1199998888":      "(11) 9999-8888",
		"11999998888":     "(11) 99999-8888",
		"(11) 99999-8888": "(11) 99999-8888",
		"1199999888877":   "(11) 99999-8888",
	}
	for in, want := range cases {
		if got := FormatPhoneMask(in); got != want {
			t.Errorf("FormatPhoneMask(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseField(t *testing.T) {
	for raw, want := range map[string]Field{"first_name": FieldName, "WhatsApp": FieldPhone, "email": FieldEmail} {
		got, ok := ParseField(raw)
		if !ok || got != want {
			t.Errorf("ParseField(%q) = %q,%v", raw, got, ok)
		}
	}
	if _, ok := ParseField("company"); ok {
		t.Errorf("expected unknown field to be rejected")
	}
}

func TestSubmissionNormalized(t *testing.T) {
	got := Submission{Name: " Ana  Silva ", Phone: "(11) 99999-8888", Email: " Ana@Example.com "}.Normalized()
	want := Submission{Name: "Ana Silva", Phone: "11999998888", Email: "ana@example.com"}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}
