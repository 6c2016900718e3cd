package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePayload(t *testing.T) {
	tests := []struct {
		name string
		text string
		want FieldMap
	}{
		{
			name: "full alert",
			text: "SECRET=s\nINSTRUMENT=EUR_USD\nACTION=LONG_ENTRY\nQTY=50000\nTP=1.10500\nSL=1.10000",
			want: FieldMap{"SECRET": "s", "INSTRUMENT": "EUR_USD", "ACTION": "LONG_ENTRY", "QTY": "50000", "TP": "1.10500", "SL": "1.10000"},
		},
		{
			name: "keys are upper-cased and trimmed",
			text: "  instrument =  GBP_USD  \r\n Action=exit_long",
			want: FieldMap{"INSTRUMENT": "GBP_USD", "ACTION": "exit_long"},
		},
		{
			name: "blank lines and lines without '=' are dropped",
			text: "\n\nTradingView alert fired\nQTY=10\n   \n",
			want: FieldMap{"QTY": "10"},
		},
		{
			name: "split at first '=' only",
			text: "TOKEN=YWJj==\nNOTE=a=b=c",
			want: FieldMap{"TOKEN": "YWJj==", "NOTE": "a=b=c"},
		},
		{
			name: "empty key dropped",
			text: "=orphan\nQTY=1",
			want: FieldMap{"QTY": "1"},
		},
		{
			name: "empty value kept",
			text: "TP=",
			want: FieldMap{"TP": ""},
		},
		{
			name: "bare carriage returns",
			text: "QTY=1\rACTION=EXIT_SHORT",
			want: FieldMap{"QTY": "1", "ACTION": "EXIT_SHORT"},
		},
		{
			name: "unparsable input",
			text: "hello world\nno pairs here",
			want: FieldMap{},
		},
		{
			name: "empty input",
			text: "",
			want: FieldMap{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePayload(tt.text))
		})
	}
}

func TestParsePayloadDuplicateKeysLastWins(t *testing.T) {
	got := ParsePayload("QTY=100\nqty=200\nQTY = 300")
	assert.Equal(t, "300", got.Get(FieldQty))
}

func TestRedactSecret(t *testing.T) {
	in := "secret = hunter2\nINSTRUMENT=EUR_USD\nSECRET=again"
	assert.Equal(t, "SECRET=***\nINSTRUMENT=EUR_USD\nSECRET=***", RedactSecret(in))
	assert.Equal(t, "ACTION=EXIT_LONG", RedactSecret("ACTION=EXIT_LONG"))
}

func TestValidateSecret(t *testing.T) {
	tests := []struct {
		name   string
		fields FieldMap
		secret string
		want   bool
	}{
		{"match", FieldMap{"SECRET": "supersecret123"}, "supersecret123", true},
		{"case sensitive", FieldMap{"SECRET": "SuperSecret123"}, "supersecret123", false},
		{"missing field", FieldMap{"INSTRUMENT": "EUR_USD"}, "supersecret123", false},
		{"empty field", FieldMap{"SECRET": ""}, "supersecret123", false},
		{"prefix only", FieldMap{"SECRET": "supersecret"}, "supersecret123", false},
		{"unconfigured secret fails closed", FieldMap{"SECRET": ""}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateSecret(tt.fields, tt.secret))
		})
	}
}
