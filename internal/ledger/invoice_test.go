package ledger

import "testing"

func TestInvoice_String(t *testing.T) {
	inv := Invoice{
		Purpose:   PurposeMessage,
		Date:      "2024-01-15",
		PubPrefix: "02b4632d",
		Counter:   3,
	}
	want := "2-msg-2024-01-15-02b4632d-3"
	if got := inv.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestParseInvoice_Roundtrip(t *testing.T) {
	original := Invoice{
		Purpose:   PurposeMessage,
		Date:      "2024-06-01",
		PubPrefix: "03aabbcc",
		Counter:   42,
	}
	parsed, err := ParseInvoice(original.String())
	if err != nil {
		t.Fatalf("ParseInvoice() error: %v", err)
	}
	if parsed != original {
		t.Errorf("roundtrip = %+v, want %+v", parsed, original)
	}
}

func TestParseInvoice_Malformed(t *testing.T) {
	cases := []string{
		"",
		"2-msg-2024-01-15-02b4632d",      // missing counter
		"2-msg-2024-01-15-02b4632d-0",    // counter below 1
		"2-msg-2024-01-15-02b4632d-x",    // non-numeric counter
		"3-msg-2024-01-15-02b4632d-1",    // wrong protocol prefix
		"2-msg-2024-01-15-02b4632d-1-9",  // too many parts
		"not an invoice",
	}
	for _, s := range cases {
		if _, err := ParseInvoice(s); err == nil {
			t.Errorf("ParseInvoice(%q) should fail", s)
		}
	}
}
