package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentDigestStable(t *testing.T) {
	v := Map{"nodes": List{Int(1), Int(2)}, "title": String("demo")}

	d1, err := ComponentDigest(v)
	require.NoError(t, err)
	d2, err := ComponentDigest(v)
	require.NoError(t, err)

	assert.Equal(t, d1, d2)
	assert.Len(t, d1, 64) // hex SHA-256
}

func TestComponentDigestKeyOrderInsensitive(t *testing.T) {
	// Two maps with the same content digest equally no matter how they
	// were built; canonical form erases construction order.
	a := Map{"x": Int(1), "y": Int(2)}
	b := Map{}
	b["y"] = Int(2)
	b["x"] = Int(1)

	da, err := ComponentDigest(a)
	require.NoError(t, err)
	db, err := ComponentDigest(b)
	require.NoError(t, err)
	assert.Equal(t, da, db)
}

func TestComponentDigestContentSensitive(t *testing.T) {
	base := Map{"x": Int(1)}
	changed := Map{"x": Int(2)}

	da, err := ComponentDigest(base)
	require.NoError(t, err)
	db, err := ComponentDigest(changed)
	require.NoError(t, err)
	assert.NotEqual(t, da, db)
}

func TestDomainSeparation(t *testing.T) {
	// The same bytes under different domains must not collide.
	v := Map{"k": String("v")}

	dc, err := Digest(DomainComponent, v)
	require.NoError(t, err)
	dt, err := Digest(DomainTrace, v)
	require.NoError(t, err)
	assert.NotEqual(t, dc, dt)
}

func TestTraceDigest(t *testing.T) {
	trace := List{
		Map{"seq": Int(1), "label": String("load")},
		Map{"seq": Int(2), "label": String("layout")},
	}

	d1, err := TraceDigest(trace)
	require.NoError(t, err)

	reordered := List{
		Map{"seq": Int(2), "label": String("layout")},
		Map{"seq": Int(1), "label": String("load")},
	}
	d2, err := TraceDigest(reordered)
	require.NoError(t, err)

	assert.NotEqual(t, d1, d2, "trace digests must be order-sensitive")
}

func TestMustComponentDigestPanicsOnBadValue(t *testing.T) {
	assert.Panics(t, func() {
		MustComponentDigest(nil)
	})
}
