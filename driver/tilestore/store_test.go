package tilestore

import (
	"path/filepath"
	"sync"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-raster/raster"
)

func uint16sAsBytes(v []uint16) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*2)
}

func tempStore(t *testing.T, width, height, bands int, dtype raster.DataType, opts ...StoreOption) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.rast")
	s, err := Create(path, width, height, bands, dtype, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestCreateAndMeta(t *testing.T) {
	s, _ := tempStore(t, 100, 80, 2, raster.UInt16, WithTileSize(32))

	w, h := s.Size()
	assert.Equal(t, 100, w)
	assert.Equal(t, 80, h)
	assert.Equal(t, 2, s.BandCount())
	assert.Equal(t, raster.UInt16, s.DataType())
	assert.Equal(t, 32, s.TileSize())
}

func TestMissingTilesReadAsZero(t *testing.T) {
	s, _ := tempStore(t, 64, 64, 1, raster.Byte, WithTileSize(16))

	line := make([]byte, 64)
	require.NoError(t, s.ReadLine(1, 10, 0, 64, line))
	for i, v := range line {
		assert.Equal(t, byte(0), v, "sample %d", i)
	}
}

func TestWindowAcrossTileBoundaries(t *testing.T) {
	s, _ := tempStore(t, 100, 80, 2, raster.UInt16, WithTileSize(32))
	ds := raster.NewDataset(s)

	// (20,20 50x40) spans a 2x2 tile neighborhood in both bands.
	win := raster.WindowOf(20, 20, 50, 40)
	src := make([]uint16, 50*40*2)
	for i := range src {
		src[i] = uint16(i % 60000)
	}
	require.NoError(t, ds.Write(win, src))

	dst := make([]uint16, len(src))
	require.NoError(t, ds.Read(win, dst))
	assert.Equal(t, src, dst)

	// Pixels outside the written window stay zero.
	edge := make([]uint16, 10)
	require.NoError(t, s.ReadLine(1, 0, 0, 10, uint16sAsBytes(edge)))
	for i, v := range edge {
		assert.Equal(t, uint16(0), v, "sample %d", i)
	}
}

func TestReopenPersists(t *testing.T) {
	s, path := tempStore(t, 40, 40, 1, raster.Int32, WithTileSize(16))
	ds := raster.NewDataset(s)

	src := make([]int32, 40*40)
	for i := range src {
		src[i] = int32(i - 800)
	}
	require.NoError(t, ds.Write(raster.WindowOf(0, 0, 40, 40), src))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, raster.Int32, reopened.DataType())
	assert.Equal(t, 16, reopened.TileSize())

	dst := make([]int32, len(src))
	require.NoError(t, raster.NewDataset(reopened).Read(raster.WindowOf(0, 0, 40, 40), dst))
	assert.Equal(t, src, dst)
}

func TestProgressiveReadMatchesSync(t *testing.T) {
	s, _ := tempStore(t, 48, 48, 1, raster.Byte, WithTileSize(16))
	ds := raster.NewDataset(s)

	src := make([]byte, 48*48)
	for i := range src {
		src[i] = byte(i)
	}
	require.NoError(t, ds.Write(raster.WindowOf(0, 0, 48, 48), src))

	buf := make([]byte, 48*48)
	req, err := ds.BeginAsyncRead(raster.WindowOf(0, 0, 48, 48), buf)
	require.NoError(t, err)
	defer ds.EndAsyncRead(req)

	updates := 0
	for {
		status, _ := req.GetNextUpdatedRegion(5 * time.Second)
		require.NotEqual(t, raster.StatusError, status, "decode failed: %v", req.Err())
		require.NotEqual(t, raster.StatusPending, status, "decode did not finish in time")
		if status == raster.StatusComplete {
			break
		}
		updates++
	}
	// One update per tile row.
	assert.GreaterOrEqual(t, updates, 1)
	assert.LessOrEqual(t, updates, 3)

	req.LockBuffer()
	assert.Equal(t, src, buf)
	req.UnlockBuffer()
}

func TestConcurrentReadersWithWriter(t *testing.T) {
	s, _ := tempStore(t, 64, 64, 1, raster.Byte, WithTileSize(16))

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			line := make([]byte, 64)
			for {
				select {
				case <-stop:
					return
				default:
				}
				if err := s.ReadLine(1, 0, 0, 64, line); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}

	src := make([]byte, 64)
	for i := range src {
		src[i] = byte(i)
	}
	for i := 0; i < 50; i++ {
		require.NoError(t, s.WriteLine(1, 0, 0, 64, src))
	}
	close(stop)
	wg.Wait()

	line := make([]byte, 64)
	require.NoError(t, s.ReadLine(1, 0, 0, 64, line))
	assert.Equal(t, src, line)
}

func TestTileCodecRoundTrip(t *testing.T) {
	s, _ := tempStore(t, 16, 16, 1, raster.Byte)

	raw := make([]byte, 256)
	for i := range raw {
		raw[i] = byte(i)
	}
	frame := s.encodeTile(raw)
	require.Greater(t, len(frame), 8)
	assert.Equal(t, tileMagic, string(frame[:4]))

	got, err := s.decodeTile(frame)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	_, err = s.decodeTile(frame[:4])
	assert.Error(t, err)
	frame[0] = 'X'
	_, err = s.decodeTile(frame)
	assert.Error(t, err)
}
