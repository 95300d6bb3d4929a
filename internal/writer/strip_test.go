package writer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkerStrip_FirstLineOnly(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	m := NewMarkerStrip(&out)

	_, err := m.Write([]byte("name[0],name[1],id\nv[0],\"x[12]\",1\n"))
	require.NoError(t, err)
	_, err = m.Write([]byte("w[3],y,2\n"))
	require.NoError(t, err)
	require.NoError(t, m.Flush())

	assert.Equal(t, "name,name,id\nv[0],\"x[12]\",1\nw[3],y,2\n", out.String())
}

func TestMarkerStrip_HeaderSplitAcrossWrites(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	m := NewMarkerStrip(&out)
	for _, part := range []string{"\"店舗", "[1", "0]\",\"a[", "2]\"", "\n\"row[0]\"\n"} {
		n, err := m.Write([]byte(part))
		require.NoError(t, err)
		assert.Equal(t, len(part), n)
	}
	require.NoError(t, m.Flush())
	assert.Equal(t, "\"店舗\",\"a\"\n\"row[0]\"\n", out.String())
}

func TestMarkerStrip_KeepsNonNumericBrackets(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	m := NewMarkerStrip(&out)
	_, err := m.Write([]byte("a[x],b[],c[1a],d[007]\n"))
	require.NoError(t, err)
	assert.Equal(t, "a[x],b[],c[1a],d\n", out.String())
}

func TestMarkerStrip_FlushUnterminated(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	m := NewMarkerStrip(&out)
	_, err := m.Write([]byte("a[0],a[1]"))
	require.NoError(t, err)
	assert.Empty(t, out.String(), "first line is held until newline or flush")

	require.NoError(t, m.Flush())
	require.NoError(t, m.Flush())
	assert.Equal(t, "a,a", out.String())
}
