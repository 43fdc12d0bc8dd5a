package export

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"farmledger/internal/ports"

	"github.com/shopspring/decimal"
)

func sampleRecords() []ports.Record {
	return []ports.Record{
		{ID: "a1", Title: "Layer mash", Amount: decimal.RequireFromString("1250.5"), Category: "feed", Date: "2024-03-10", Description: "20 bags, \"premium\"", PaymentMethod: "upi"},
		{ID: "b2", Title: "Vaccines", Amount: decimal.NewFromInt(800), Category: "medicine", Date: "2024-02-01", PaymentMethod: "cash"},
	}
}

func TestWriteRead(t *testing.T) {
	for _, f := range Formats() {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Write(&buf, f, sampleRecords()); err != nil {
				t.Fatalf("Write: %v", err)
			}
			got, err := Read(&buf, f)
			if err != nil {
				t.Fatalf("Read: %v\n%s", err, buf.String())
			}
			want := sampleRecords()
			if len(got) != len(want) {
				t.Fatalf("got %d records", len(got))
			}
			for i := range want {
				if got[i].ID != want[i].ID || got[i].Title != want[i].Title ||
					!got[i].Amount.Equal(want[i].Amount) || got[i].PaymentMethod != want[i].PaymentMethod ||
					got[i].Date != want[i].Date || got[i].Description != want[i].Description {
					t.Errorf("record %d: got %+v, want %+v", i, got[i], want[i])
				}
			}
		})
	}
}

func TestLegacyImport(t *testing.T) {
	in := `[
	  {"id":"1717000000000","title":"Chicken feed","amount":1500,"category":"feed","date":"2024-05-29","paymentMethod":"cash"},
	  {"id":"1717000000001","title":"Electricity","amount":"420.75","category":"utilities","date":"2024-05-30T00:00:00.000Z","description":"May bill","paymentMethod":"bank_transfer"}
	]`
	got, err := Read(strings.NewReader(in), FormatLegacy)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records", len(got))
	}
	if got[1].Date != "2024-05-30" || got[1].PaymentMethod != "bank_transfer" {
		t.Fatalf("unexpected record %+v", got[1])
	}
	if !got[0].Amount.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("amount %s", got[0].Amount)
	}
}

func TestLegacyExportUsesCamelCase(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatLegacy, sampleRecords()[:1]); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, `"paymentMethod":"upi"`) || !strings.Contains(out, `"amount":1250.5`) {
		t.Fatalf("unexpected legacy output %s", out)
	}
}

func TestReadRejectsInvalidRecords(t *testing.T) {
	in := "title,amount,category,date,payment_method\n" +
		"Feed,10,feed,2024-01-01,cash\n" +
		"Mystery,5,toys,2024-01-02,cash\n" +
		"Labour,5,labor,not-a-date,cash\n"
	_, err := Read(strings.NewReader(in), FormatCSV)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"record 2 (Mystery)", "record 3 (Labour)"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestCSVMissingColumn(t *testing.T) {
	_, err := Read(strings.NewReader("title,amount\nFeed,10\n"), FormatCSV)
	if err == nil || !strings.Contains(err.Error(), "missing column") {
		t.Fatalf("err = %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"csv", FormatCSV, false},
		{" JSON ", FormatJSON, false},
		{"yml", FormatYAML, false},
		{"legacy", FormatLegacy, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
		if tt.wantErr && !errors.Is(err, ErrUnknownFormat) {
			t.Errorf("expected ErrUnknownFormat, got %v", err)
		}
	}
	if f, err := FormatFromPath("/tmp/backup.yaml"); err != nil || f != FormatYAML {
		t.Fatalf("FormatFromPath = %q, %v", f, err)
	}
}
