package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	assert.Equal(t, "Dr. A Rao", Name("  Dr.   A\tRao "))
	assert.Equal(t, "Dr. Rao", Name("<b>Dr.</b> Rao"))
}

func TestStripHTMLDecodedTags(t *testing.T) {
	assert.Equal(t, "hi", StripHTML("&lt;script&gt;hi"))
}

func TestTextPtr(t *testing.T) {
	assert.Nil(t, TextPtr(nil))
	v := " <i>note</i> "
	assert.Equal(t, "note", *TextPtr(&v))
}
