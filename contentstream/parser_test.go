package contentstream

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tsawler/pdfthumb/core"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Operation
	}{
		{
			name:  "path",
			input: "10 20 m 30.5 -4 l S",
			want: []Operation{
				{Operator: "m", Operands: []core.Object{core.Int(10), core.Int(20)}},
				{Operator: "l", Operands: []core.Object{core.Real(30.5), core.Int(-4)}},
				{Operator: "S", Operands: []core.Object{}},
			},
		},
		{
			name:  "integers are not references",
			input: "1 0 0 1 0 0 cm",
			want: []Operation{
				{Operator: "cm", Operands: []core.Object{
					core.Int(1), core.Int(0), core.Int(0), core.Int(1), core.Int(0), core.Int(0),
				}},
			},
		},
		{
			name:  "text with array and quotes",
			input: "BT /F1 12 Tf [(A) -120 (B)] TJ (x) ' ET",
			want: []Operation{
				{Operator: "BT", Operands: []core.Object{}},
				{Operator: "Tf", Operands: []core.Object{core.Name("F1"), core.Int(12)}},
				{Operator: "TJ", Operands: []core.Object{core.Array{core.String("A"), core.Int(-120), core.String("B")}}},
				{Operator: "'", Operands: []core.Object{core.String("x")}},
				{Operator: "ET", Operands: []core.Object{}},
			},
		},
		{
			name:  "marked content with dictionary",
			input: "/Span <</MCID 3>> BDC EMC",
			want: []Operation{
				{Operator: "BDC", Operands: []core.Object{core.Name("Span"), core.Dict{"MCID": core.Int(3)}}},
				{Operator: "EMC", Operands: []core.Object{}},
			},
		},
		{
			name:  "comments and booleans",
			input: "% comment\ntrue false null d0",
			want: []Operation{
				{Operator: "d0", Operands: []core.Object{core.Bool(true), core.Bool(false), core.Null{}}},
			},
		},
		{
			name:  "stray delimiters are skipped",
			input: "] >> 1 w",
			want: []Operation{
				{Operator: "w", Operands: []core.Object{core.Int(1)}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewParser([]byte(tt.input)).Parse()
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseReturnsPartialOnError(t *testing.T) {
	ops, err := NewParser([]byte("q 1 0 0 1 5 5 cm [1 2")).Parse()
	if err == nil {
		t.Fatal("expected an error for an unterminated array")
	}
	if len(ops) != 2 || ops[0].Operator != "q" || ops[1].Operator != "cm" {
		t.Errorf("partial ops = %+v", ops)
	}
}

func TestInlineImage(t *testing.T) {
	data := []byte("q BI /W 2 /H 2 /BPC 8 /CS /G ID \x00\xffEI EI Q")
	ops, err := NewParser(data).Parse()
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(ops) != 3 {
		t.Fatalf("got %d ops, want 3: %+v", len(ops), ops)
	}
	if ops[1].Operator != "BI" {
		t.Fatalf("ops[1] = %q, want BI", ops[1].Operator)
	}
	img := ops[1].Operands[0].(*core.Stream)
	if w, _ := img.Dict.GetInt("Width"); w != 2 {
		t.Errorf("Width = %d, want 2", w)
	}
	if cs, _ := img.Dict.GetName("ColorSpace"); cs != "DeviceGray" {
		t.Errorf("ColorSpace = %q, want DeviceGray", cs)
	}
	// The sample bytes contain "EI" but the computed length wins.
	if string(img.Data) != "\x00\xffEI" {
		t.Errorf("Data = %q", img.Data)
	}
	if ops[2].Operator != "Q" {
		t.Errorf("ops[2] = %q, want Q", ops[2].Operator)
	}
}

func TestInlineImageFiltered(t *testing.T) {
	data := []byte("BI /W 1 /H 1 /F /AHx ID\nff>\nEI 0 g")
	ops, err := NewParser(data).Parse()
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("got %d ops, want 2", len(ops))
	}
	img := ops[0].Operands[0].(*core.Stream)
	if f, _ := img.Dict.GetName("Filter"); f != "ASCIIHexDecode" {
		t.Errorf("Filter = %q", f)
	}
	if string(img.Data) != "ff>" {
		t.Errorf("Data = %q, want %q", img.Data, "ff>")
	}
	if ops[1].Operator != "g" {
		t.Errorf("ops[1] = %q, want g", ops[1].Operator)
	}
}
