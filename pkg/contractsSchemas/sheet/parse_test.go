package sheet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const preamble = "PREFEITURA MUNICIPAL - CONTRATOS\nRelatório gerado em 01/05/2024\n,,,\n"

func TestParseTooShort(t *testing.T) {
	for _, text := range []string{
		"",
		"only one line",
		"a\nb\nc",
		"a\n\n\nb\n \nc\n",
	} {
		s := Parse(text)
		assert.Empty(t, s.Headers, "text: %q", text)
		assert.Empty(t, s.Records, "text: %q", text)
		assert.NotNil(t, s.Headers)
		assert.NotNil(t, s.Records)
	}
}

func TestParseHeaderOnly(t *testing.T) {
	s := Parse(preamble + "NUM,SECRETARIA\n")
	assert.Equal(t, []Header{{"NUM", "NUM"}, {"SECRETARIA", "SECRETARIA"}}, s.Headers)
	assert.Empty(t, s.Records)
}

func TestParseHeaderDeduplication(t *testing.T) {
	s := Parse(preamble + "A,B,A,A\n")
	assert.Equal(t, []string{"A", "B", "A_1", "A_2"}, Keys(s.Headers))
}

func TestParseHeaderPlaceholderAndLabels(t *testing.T) {
	s := Parse(preamble + "Nº,, situação ,\n")
	assert.Equal(t, []Header{
		{Key: "Nº", Label: "Nº"},
		{Key: "Untitled", Label: "UNTITLED"},
		{Key: "situação", Label: "SITUAÇÃO"},
		{Key: "Untitled_1", Label: "UNTITLED_1"},
	}, s.Headers)
}

func TestDedupeHeadersAvoidsLiteralCollisions(t *testing.T) {
	headers := dedupeHeaders([]string{"A", "A_1", "A", "A_1"})
	keys := Keys(headers)
	assert.Equal(t, []string{"A", "A_1", "A_2", "A_1_1"}, keys)

	unique := map[string]bool{}
	for _, k := range keys {
		unique[k] = true
	}
	assert.Len(t, unique, len(keys))
}

func TestParseRecords(t *testing.T) {
	text := preamble +
		"NUM,SECRETARIA,OBJETO\n" +
		"1,SAÚDE,\"Limpeza, conservação\"\n" +
		"\n" +
		" , ,  \n" +
		",,\n" +
		"2,EDUCAÇÃO\n" +
		"3,OBRAS,Pavimentação,extra,cells\n"

	s := Parse(text)
	require.Len(t, s.Records, 3)

	first := s.Records[0]
	assert.Equal(t, "row-4", first.ID())
	assert.Equal(t, []string{"1", "SAÚDE", "Limpeza, conservação"}, first.Values())

	// Blank-only rows are dropped but still count toward line positions
	second := s.Records[1]
	assert.Equal(t, "row-7", second.ID())
	assert.Equal(t, []string{"2", "EDUCAÇÃO", ""}, second.Values())
	assert.True(t, second.Has("OBJETO"))

	third := s.Records[2]
	assert.Equal(t, "row-8", third.ID())
	assert.Equal(t, []string{"NUM", "SECRETARIA", "OBJETO"}, third.Keys())
	assert.Equal(t, "Pavimentação", third.Get("OBJETO"))
}

func TestParseEveryRecordHasEveryHeader(t *testing.T) {
	s := Parse(preamble + "A,B,C,D\n1\n1,2\n1,2,3,4,5\n")
	for _, r := range s.Records {
		assert.Equal(t, Keys(s.Headers), r.Keys())
		assert.Len(t, r.Map(), len(s.Headers))
	}
}

func TestParseIsIdempotent(t *testing.T) {
	text := preamble + "A,B\n1,2\n3,4\n"
	assert.Equal(t, Parse(text), Parse(text))
}

func TestParseHandlesCRLFAndBOM(t *testing.T) {
	text := "\ufeff" + strings.ReplaceAll(preamble+"A,B\n1,2\n", "\n", "\r\n")
	s := Parse(text)
	assert.Equal(t, []string{"A", "B"}, Keys(s.Headers))
	require.Len(t, s.Records, 1)
	assert.Equal(t, []string{"1", "2"}, s.Records[0].Values())
}

func TestLayoutParse(t *testing.T) {
	l := Layout{HeaderRow: 0, DataStart: 1}
	s := l.Parse("A,B\n1,2\n")
	assert.Equal(t, []string{"A", "B"}, Keys(s.Headers))
	require.Len(t, s.Records, 1)
	assert.Equal(t, "row-1", s.Records[0].ID())
}
