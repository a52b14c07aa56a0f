package pack

import (
	"testing"

	"github.com/kateinoigakukun/wasi-vfs-go/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{}

func (fakeClock) Now(clockID uint32) (uint64, error) { return 0, nil }

func TestLoaderRepackMaterializesGraph(t *testing.T) {
	v := vfs.New(3, fakeClock{})
	loader := NewLoader(v, Options{})

	image := Encode(sampleImage())
	require.NoError(t, loader.Repack(image))

	require.Len(t, v.Mounts.Mounts(), 1)
	root := v.Mounts.Mounts()[0].Root

	link, err := v.Graph.Resolve(root, "/hello.txt", true)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), v.Graph.N(v.Graph.L(link).Node).Bytes)

	nested, err := v.Graph.Resolve(root, "/sub/nested.txt", true)
	require.NoError(t, err)
	assert.Equal(t, []byte("nested"), v.Graph.N(v.Graph.L(nested).Node).Bytes)

	symlinkTarget, err := v.Graph.Resolve(root, "/link", true)
	require.NoError(t, err)
	assert.Equal(t, link, symlinkTarget)
}

func TestLoaderRepackReplacesPriorGraph(t *testing.T) {
	v := vfs.New(3, fakeClock{})
	loader := NewLoader(v, Options{})

	require.NoError(t, loader.Repack(Encode(sampleImage())))
	firstGen := v.Graph.Generation()

	second := &Image{Mounts: []MountImage{
		{Prefix: "/", Root: Node{Kind: KindDir, Entries: []Node{
			{Name: "only.txt", Kind: KindFile, Bytes: []byte("v2")},
		}}},
	}}
	require.NoError(t, loader.Repack(Encode(second)))

	assert.NotEqual(t, firstGen, v.Graph.Generation())
	require.Len(t, v.Mounts.Mounts(), 1)
	root := v.Mounts.Mounts()[0].Root

	_, err := v.Graph.Resolve(root, "/hello.txt", true)
	assert.Error(t, err, "stale entry from the first image must not survive Repack")

	link, err := v.Graph.Resolve(root, "/only.txt", true)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), v.Graph.N(v.Graph.L(link).Node).Bytes)
}

func TestLoaderNormalizesNames(t *testing.T) {
	v := vfs.New(3, fakeClock{})
	loader := NewLoader(v, Options{NormalizeNames: true})

	// "e" + U+0301 COMBINING ACUTE ACCENT (NFD) should normalize to
	// U+00E9 LATIN SMALL LETTER E WITH ACUTE (NFC) on load, matching how a
	// guest would type the composed rune in a literal path.
	nfd := "é.txt"
	nfc := "\u00e9.txt"
	img := &Image{Mounts: []MountImage{
		{Prefix: "/", Root: Node{Kind: KindDir, Entries: []Node{
			{Name: nfd, Kind: KindFile, Bytes: []byte("accented")},
		}}},
	}}
	require.NoError(t, loader.Repack(Encode(img)))

	root := v.Mounts.Mounts()[0].Root
	_, err := v.Graph.Resolve(root, "/"+nfc, true)
	assert.NoError(t, err, "NFC-composed lookup should find the normalized entry")
}

func TestLoaderRepackClosesFdsFromPriorGeneration(t *testing.T) {
	v := vfs.New(3, fakeClock{})
	loader := NewLoader(v, Options{})

	require.NoError(t, loader.Repack(Encode(sampleImage())))
	mnt := v.Mounts.Mounts()[0]
	link, err := v.Graph.Resolve(mnt.Root, "/hello.txt", true)
	require.NoError(t, err)
	fd := v.OpenAt(mnt, link, vfs.RightsAll, vfs.RightsAll, 0)

	second := &Image{Mounts: []MountImage{
		{Prefix: "/", Root: Node{Kind: KindDir, Entries: []Node{
			{Name: "only.txt", Kind: KindFile, Bytes: []byte("v2")},
		}}},
	}}
	require.NoError(t, loader.Repack(Encode(second)))

	assert.Nil(t, v.FDs.Get(fd), "fd opened against the prior generation must not survive Repack")
}

func TestLoaderRejectsMalformedImage(t *testing.T) {
	v := vfs.New(3, fakeClock{})
	loader := NewLoader(v, Options{})
	err := loader.Repack([]byte{0xff, 0xff, 0xff, 0xff})
	assert.Error(t, err)
}
