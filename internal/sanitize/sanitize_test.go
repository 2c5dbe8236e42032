package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "Não se apresentou", "Não se apresentou"},
		{"spaces collapsed", "  faltou   a  despedida ", "faltou a despedida"},
		{"line breaks kept", "linha 1\n  linha 2 ", "linha 1\nlinha 2"},
		{"blank lines squeezed", "\n\nparágrafo 1\n\n\n\r\nparágrafo 2\n\n", "parágrafo 1\n\nparágrafo 2"},
		{"tags removed", "<b>Encerrou</b> sem <i>despedida</i>", "Encerrou sem despedida"},
		{"script dropped", "ok<script>alert(1)</script> fim", "ok fim"},
		{"entities decoded", "prazo &lt; 24h &amp; sem retorno", "prazo < 24h & sem retorno"},
		{"br becomes a line break", "a<br/>b", "a\nb"},
		{"paragraphs become lines", "<p>um</p><p>dois</p>", "um\ndois"},
		{"comparison is not a tag", "a<b c", "a<b c"},
		{"bare less-than kept", "prazo < 24h", "prazo < 24h"},
		{"stray less-than next to markup", "x<y e <b>z</b>", "x<y e z"},
		{"comment dropped", "antes<!-- nota -->depois", "antesdepois"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PlainText(tc.in))
		})
	}
}

func TestLine(t *testing.T) {
	assert.Equal(t, "conv 9", Line(" <b>conv</b>\n9 "))
	assert.Equal(t, "a<b", Line("a<b"))
}
