package assets

import (
	"bytes"
	"encoding/binary"
	"io/fs"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/roseimport/pkg/formats"
	"github.com/Faultbox/roseimport/pkg/vfs"
)

// triangleZMS builds a ZMS0008 file with one position-only triangle.
func triangleZMS() []byte {
	buf := new(bytes.Buffer)
	le := func(v any) { binary.Write(buf, binary.LittleEndian, v) }

	buf.WriteString("ZMS0008\x00")
	le(int32(formats.VertexPosition))
	le([6]float32{0, 0, 0, 1, 1, 0})
	le(int16(0)) // bones
	le(int16(3))
	le([9]float32{0, 0, 0, 1, 0, 0, 0, 1, 0})
	le(int16(1))
	le([3]int16{0, 1, 2})
	le(int16(0)) // strips
	le(int16(0)) // pool type
	return buf.Bytes()
}

func oneBoneZMD() []byte {
	buf := new(bytes.Buffer)
	le := func(v any) { binary.Write(buf, binary.LittleEndian, v) }

	buf.WriteString(formats.ZMDMagic2)
	le(int32(1))
	le(int32(0))
	buf.WriteString("root\x00")
	le([3]float32{})
	le([4]float32{1, 0, 0, 0})
	le(int32(0)) // dummies
	return buf.Bytes()
}

// spinZMO builds a two-frame motion rotating bone 0.
func spinZMO() []byte {
	buf := new(bytes.Buffer)
	le := func(v any) { binary.Write(buf, binary.LittleEndian, v) }

	buf.WriteString(formats.ZMOMagic + "\x00")
	le([3]int32{30, 2, 1})
	le([2]int32{int32(formats.ChannelRotation), 0})
	le([4]float32{1, 0, 0, 0})
	le([4]float32{0, 0, 0, 1})
	return buf.Bytes()
}

func newTestManager(t *testing.T, trees ...fstest.MapFS) *Manager {
	t.Helper()
	m := NewManager()
	for _, tree := range trees {
		src, err := vfs.OpenFS(tree)
		require.NoError(t, err)
		m.AddSource(src)
	}
	t.Cleanup(m.Close)
	return m
}

func TestManager_Layering(t *testing.T) {
	base := fstest.MapFS{
		"3DDATA/A.TXT": {Data: []byte("base")},
		"3DDATA/B.TXT": {Data: []byte("only base")},
	}
	patch := fstest.MapFS{
		"3ddata/a.txt": {Data: []byte("patched")},
		"3DDATA/C.ZMS": {Data: triangleZMS()},
	}
	m := newTestManager(t, base, patch)

	data, err := m.Read(`3DDATA\A.TXT`)
	require.NoError(t, err)
	assert.Equal(t, "patched", string(data))

	data, err = m.Read("3DDATA/B.TXT")
	require.NoError(t, err)
	assert.Equal(t, "only base", string(data))

	assert.True(t, m.Contains("3ddata/c.zms"))
	assert.False(t, m.Contains("3DDATA/D.TXT"))

	_, err = m.Read("3DDATA/D.TXT")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestManager_ListAndGlob(t *testing.T) {
	m := newTestManager(t,
		fstest.MapFS{"X/A.ZMS": {}, "X/B.ZSC": {}},
		fstest.MapFS{"X/A.ZMS": {}, "Y/C.ZMS": {}},
	)

	assert.Equal(t, []string{"X/A.ZMS", "X/B.ZSC", "Y/C.ZMS"}, m.List())

	names, err := m.Glob("*/*.zms")
	require.NoError(t, err)
	assert.Equal(t, []string{"X/A.ZMS", "Y/C.ZMS"}, names)

	assert.Equal(t, map[string]int{"ZMS": 2, "ZSC": 1}, m.CountByExt())

	_, err = m.Glob("[")
	assert.Error(t, err)
}

func TestManager_Cache(t *testing.T) {
	m := newTestManager(t, fstest.MapFS{"A.TXT": {Data: []byte("x")}})

	for i := 0; i < 3; i++ {
		_, err := m.Read("A.TXT")
		require.NoError(t, err)
	}
	hits, misses := m.Stats()
	assert.Equal(t, 2, hits)
	assert.Equal(t, 1, misses)
}

func TestManager_Mesh(t *testing.T) {
	m := newTestManager(t, fstest.MapFS{
		"3DDATA/TRI.ZMS": {Data: triangleZMS()},
		"3DDATA/BAD.ZMS": {Data: []byte("ZMS0008\x00")},
	})

	zms, err := m.Mesh(`3DDATA\TRI.ZMS`)
	require.NoError(t, err)
	assert.Equal(t, 3, zms.VertexCount())
	assert.Equal(t, 1, zms.FaceCount())

	again, err := m.Mesh("3ddata/tri.zms")
	require.NoError(t, err)
	assert.Same(t, zms, again)

	_, err = m.Mesh("3DDATA/BAD.ZMS")
	assert.ErrorIs(t, err, formats.ErrOutOfBounds)

	_, err = m.Mesh("3DDATA/MISSING.ZMS")
	assert.ErrorIs(t, err, formats.ErrIO)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestManager_SkeletonAndMotion(t *testing.T) {
	m := newTestManager(t, fstest.MapFS{
		"3DDATA/NPC/ONE.ZMD":  {Data: oneBoneZMD()},
		"3DDATA/NPC/SPIN.ZMO": {Data: spinZMO()},
	})

	zmd, err := m.Skeleton(`3DDATA\NPC\ONE.ZMD`)
	require.NoError(t, err)
	require.Len(t, zmd.Bones, 1)
	assert.Equal(t, "root", zmd.Bones[0].Name)

	zmo, err := m.Motion("3ddata/npc/spin.zmo")
	require.NoError(t, err)
	assert.Equal(t, 2, zmo.FrameCount)
	require.NoError(t, zmo.Validate(len(zmd.Bones)))

	again, err := m.Motion("3DDATA/NPC/SPIN.ZMO")
	require.NoError(t, err)
	assert.Same(t, zmo, again)

	_, err = m.Skeleton("3DDATA/NPC/SPIN.ZMO")
	assert.ErrorIs(t, err, formats.ErrFormat)

	_, err = m.Motion("3DDATA/NPC/MISSING.ZMO")
	assert.ErrorIs(t, err, formats.ErrIO)
}

func TestManager_ConcurrentMesh(t *testing.T) {
	m := newTestManager(t, fstest.MapFS{"TRI.ZMS": {Data: triangleZMS()}})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			zms, err := m.Mesh("TRI.ZMS")
			assert.NoError(t, err)
			assert.Equal(t, 3, zms.VertexCount())
		}()
	}
	wg.Wait()
}

func TestCache(t *testing.T) {
	c := NewCache[int]()
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Set("a", 1)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, c.Len())

	hits, misses := c.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)

	c.Clear()
	assert.Zero(t, c.Len())
	hits, misses = c.Stats()
	assert.Zero(t, hits+misses)
}
