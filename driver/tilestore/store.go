// Package tilestore implements a tiled raster container in a single SQLite
// file: a meta table describing the raster and a tiles table holding
// zstd-compressed native-packed tiles, one row per (band, tx, ty). It backs
// the access layer both synchronously and through progressive decode.
package tilestore

import (
	"database/sql"
	"fmt"
	"runtime"
	"strconv"
	"sync"

	"github.com/klauspost/compress/zstd"
	_ "github.com/mattn/go-sqlite3"

	"github.com/robert-malhotra/go-raster/raster"
)

// DefaultTileSize is the tile edge length used when Create is not told
// otherwise.
const DefaultTileSize = 256

// tileCacheSlots bounds the decompressed-tile cache.
const tileCacheSlots = 64

// StoreOption configures Create.
type StoreOption func(*storeOptions)

type storeOptions struct {
	tileSize int
	level    zstd.EncoderLevel
}

// WithTileSize sets the tile edge length in pixels.
func WithTileSize(n int) StoreOption {
	return func(o *storeOptions) {
		if n > 0 {
			o.tileSize = n
		}
	}
}

// WithCompressionLevel sets the zstd level used for newly written tiles.
func WithCompressionLevel(level zstd.EncoderLevel) StoreOption {
	return func(o *storeOptions) {
		o.level = level
	}
}

// Store is a tiled raster backend. Writes replace cached tiles instead of
// mutating them in place, so concurrent readers and in-flight progressive
// decodes always see a consistent tile snapshot.
type Store struct {
	db       *sql.DB
	width    int
	height   int
	bands    int
	tileSize int
	dtype    raster.DataType
	enc      *zstd.Encoder
	dec      *zstd.Decoder
	sem      chan struct{}

	mu    sync.Mutex
	cache map[tileKey][]byte
}

type tileKey struct {
	band, tx, ty int
}

const schema = `
CREATE TABLE IF NOT EXISTS meta (name TEXT PRIMARY KEY, value TEXT);
CREATE TABLE IF NOT EXISTS tiles (
	band INTEGER NOT NULL,
	tx   INTEGER NOT NULL,
	ty   INTEGER NOT NULL,
	data BLOB NOT NULL,
	PRIMARY KEY (band, tx, ty)
);
`

// Create makes a new store at path. Tiles start absent and read as zero.
func Create(path string, width, height, bands int, dtype raster.DataType, opts ...StoreOption) (*Store, error) {
	if width <= 0 || height <= 0 || bands <= 0 {
		return nil, fmt.Errorf("invalid raster size %dx%dx%d", width, height, bands)
	}
	if dtype.Size() == 0 {
		return nil, fmt.Errorf("invalid data type")
	}
	o := &storeOptions{tileSize: DefaultTileSize, level: zstd.SpeedDefault}
	for _, opt := range opts {
		opt(o)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	meta := map[string]string{
		"width":    strconv.Itoa(width),
		"height":   strconv.Itoa(height),
		"bands":    strconv.Itoa(bands),
		"datatype": dtype.String(),
		"tilesize": strconv.Itoa(o.tileSize),
	}
	for name, value := range meta {
		if _, err := db.Exec(
			`INSERT INTO meta (name, value) VALUES (?, ?) ON CONFLICT(name) DO UPDATE SET value=excluded.value`,
			name, value); err != nil {
			db.Close()
			return nil, fmt.Errorf("writing meta %s: %w", name, err)
		}
	}
	return newStore(db, width, height, bands, o.tileSize, dtype, o.level)
}

// Open opens an existing store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	meta := make(map[string]string)
	rows, err := db.Query(`SELECT name, value FROM meta`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("reading meta: %w", err)
	}
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			rows.Close()
			db.Close()
			return nil, fmt.Errorf("reading meta: %w", err)
		}
		meta[name] = value
	}
	if err := rows.Err(); err != nil {
		db.Close()
		return nil, fmt.Errorf("reading meta: %w", err)
	}

	var dims [4]int
	for i, name := range []string{"width", "height", "bands", "tilesize"} {
		v, ok := meta[name]
		if !ok {
			db.Close()
			return nil, fmt.Errorf("meta %s missing", name)
		}
		dims[i], err = strconv.Atoi(v)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("meta %s: %w", name, err)
		}
	}
	dtype := raster.ParseDataType(meta["datatype"])
	if dtype == raster.Unknown {
		db.Close()
		return nil, fmt.Errorf("meta datatype %q unknown", meta["datatype"])
	}
	return newStore(db, dims[0], dims[1], dims[2], dims[3], dtype, zstd.SpeedDefault)
}

func newStore(db *sql.DB, width, height, bands, tileSize int, dtype raster.DataType, level zstd.EncoderLevel) (*Store, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating compressor: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, fmt.Errorf("creating decompressor: %w", err)
	}
	// Bounded decode concurrency, one slot per core up to a small cap.
	slots := runtime.NumCPU()
	if slots > 4 {
		slots = 4
	}
	return &Store{
		db:       db,
		width:    width,
		height:   height,
		bands:    bands,
		tileSize: tileSize,
		dtype:    dtype,
		enc:      enc,
		dec:      dec,
		sem:      make(chan struct{}, slots),
		cache:    make(map[tileKey][]byte),
	}, nil
}

// Close releases the database and codec resources. In-flight progressive
// reads must be ended first.
func (s *Store) Close() error {
	s.enc.Close()
	s.dec.Close()
	return s.db.Close()
}

func (s *Store) Size() (int, int)          { return s.width, s.height }
func (s *Store) BandCount() int            { return s.bands }
func (s *Store) DataType() raster.DataType { return s.dtype }

// TileSize returns the tile edge length in pixels.
func (s *Store) TileSize() int { return s.tileSize }

func (s *Store) check(band, row, xOff, width int) error {
	if band < 1 || band > s.bands {
		return fmt.Errorf("band %d outside raster", band)
	}
	if row < 0 || row >= s.height || xOff < 0 || xOff+width > s.width {
		return fmt.Errorf("line %d [%d,%d) outside raster", row, xOff, xOff+width)
	}
	return nil
}

func (s *Store) ReadLine(band, row, xOff, width int, dst []byte) error {
	if err := s.check(band, row, xOff, width); err != nil {
		return err
	}
	sz := s.dtype.Size()
	ty := row / s.tileSize
	rowIn := row % s.tileSize
	for x := xOff; x < xOff+width; {
		tx := x / s.tileSize
		colIn := x % s.tileSize
		n := s.tileSize - colIn
		if rest := xOff + width - x; n > rest {
			n = rest
		}
		seg := dst[(x-xOff)*sz : (x-xOff+n)*sz]
		tile, err := s.tile(band, tx, ty)
		if err != nil {
			return err
		}
		if tile == nil {
			// Absent tiles read as zero.
			clear(seg)
		} else {
			copy(seg, tile[(rowIn*s.tileSize+colIn)*sz:])
		}
		x += n
	}
	return nil
}

func (s *Store) WriteLine(band, row, xOff, width int, src []byte) error {
	if err := s.check(band, row, xOff, width); err != nil {
		return err
	}
	sz := s.dtype.Size()
	ty := row / s.tileSize
	rowIn := row % s.tileSize
	for x := xOff; x < xOff+width; {
		tx := x / s.tileSize
		colIn := x % s.tileSize
		n := s.tileSize - colIn
		if rest := xOff + width - x; n > rest {
			n = rest
		}
		if err := s.patchTile(band, tx, ty, rowIn, colIn, src[(x-xOff)*sz:(x-xOff+n)*sz]); err != nil {
			return err
		}
		x += n
	}
	return nil
}

// tile returns the decompressed tile, nil when absent.
func (s *Store) tile(band, tx, ty int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tileLocked(band, tx, ty)
}

func (s *Store) tileLocked(band, tx, ty int) ([]byte, error) {
	key := tileKey{band, tx, ty}
	if tile, ok := s.cache[key]; ok {
		return tile, nil
	}
	var frame []byte
	err := s.db.QueryRow(`SELECT data FROM tiles WHERE band=? AND tx=? AND ty=?`, band, tx, ty).Scan(&frame)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading tile %d/%d/%d: %w", band, tx, ty, err)
	}
	tile, err := s.decodeTile(frame)
	if err != nil {
		return nil, fmt.Errorf("tile %d/%d/%d: %w", band, tx, ty, err)
	}
	if want := s.tileSize * s.tileSize * s.dtype.Size(); len(tile) != want {
		return nil, fmt.Errorf("tile %d/%d/%d holds %d bytes, expected %d", band, tx, ty, len(tile), want)
	}
	s.cacheTile(key, tile)
	return tile, nil
}

// patchTile read-modify-writes one line segment of a tile. The patched tile
// is a fresh slice, never the cached one: readers copy out of a tile after
// releasing the lock, so cached tiles must stay immutable once handed out.
func (s *Store) patchTile(band, tx, ty, rowIn, colIn int, seg []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, err := s.tileLocked(band, tx, ty)
	if err != nil {
		return err
	}
	sz := s.dtype.Size()
	tile := make([]byte, s.tileSize*s.tileSize*sz)
	copy(tile, old)
	copy(tile[(rowIn*s.tileSize+colIn)*sz:], seg)

	frame := s.encodeTile(tile)
	if _, err := s.db.Exec(
		`INSERT INTO tiles (band, tx, ty, data) VALUES (?, ?, ?, ?)
		 ON CONFLICT(band, tx, ty) DO UPDATE SET data=excluded.data`,
		band, tx, ty, frame); err != nil {
		return fmt.Errorf("storing tile %d/%d/%d: %w", band, tx, ty, err)
	}
	s.cacheTile(tileKey{band, tx, ty}, tile)
	return nil
}

// cacheTile inserts under the lock, evicting an arbitrary entry at capacity.
func (s *Store) cacheTile(key tileKey, tile []byte) {
	if len(s.cache) >= tileCacheSlots {
		for k := range s.cache {
			delete(s.cache, k)
			break
		}
	}
	s.cache[key] = tile
}
