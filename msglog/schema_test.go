package msglog

import "testing"

func TestParseA1(t *testing.T) {
	tests := []struct {
		in      string
		want    Range
		wantErr bool
	}{
		{in: "A1:F1", want: Range{StartCol: 0, EndCol: 5, StartRow: 1, EndRow: 1}},
		{in: "B2:D", want: Range{StartCol: 1, EndCol: 3, StartRow: 2}},
		{in: "D2:D", want: Range{StartCol: 3, EndCol: 3, StartRow: 2}},
		{in: "A:A", want: Range{}},
		{in: "c7", want: Range{StartCol: 2, EndCol: 2, StartRow: 7, EndRow: 7}},
		{in: "AA3:AB4", want: Range{StartCol: 26, EndCol: 27, StartRow: 3, EndRow: 4}},
		{in: "", wantErr: true},
		{in: "1:2", wantErr: true},
		{in: "D2:B2", wantErr: true},
		{in: "A5:A2", wantErr: true},
		{in: "A0", wantErr: true},
		{in: "Sheet1!A1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseA1(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseA1(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseA1(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRowValuesRoundTrip(t *testing.T) {
	r := Row{Timestamp: "t", Status: StatusEdited, ChatID: "1", MessageID: "2", From: "f", Text: "x"}
	if got := RowFromValues(r.Values()); got != r {
		t.Errorf("RowFromValues(Values()) = %+v", got)
	}
	short := RowFromValues([]string{"t", "received", "1", "2"})
	if short.From != "" || short.Text != "" || short.Status != StatusReceived {
		t.Errorf("short row = %+v", short)
	}
	if len(Header) != NumColumns {
		t.Errorf("header has %d columns, want %d", len(Header), NumColumns)
	}
	if RowRange(12) != "A12:F12" {
		t.Errorf("RowRange(12) = %q", RowRange(12))
	}
}
