package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/metrics"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world"
	"github.com/annel0/tileworld/internal/world/tile"
	"github.com/dgraph-io/badger/v3"
	"github.com/klauspost/compress/zstd"
)

var (
	ErrStorageClosed  = errors.New("хранилище закрыто")
	ErrCorruptedChunk = errors.New("повреждённый снимок чанка")
)

// Форматы снимка чанка: первый байт значения в BadgerDB
const (
	formatRaw  byte = 0 // 1024 x uint16 little-endian
	formatZstd byte = 1 // то же, сжатое zstd
)

const rawChunkSize = world.ChunkArea * 2

// ChunkStore хранит снимки чанков в BadgerDB
type ChunkStore struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool

	compress bool
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder

	saved   map[vec.ChunkPos]uint64 // ModCount чанка на момент последней записи/загрузки
	metrics *metrics.Metrics
	log     *logging.Logger
}

// ChunkStoreOption настраивает ChunkStore
type ChunkStoreOption func(*ChunkStore)

// WithCompression включает или выключает сжатие новых снимков (чтение понимает оба формата)
func WithCompression(enabled bool) ChunkStoreOption {
	return func(s *ChunkStore) { s.compress = enabled }
}

// WithStoreMetrics включает метрики записи чанков
func WithStoreMetrics(m *metrics.Metrics) ChunkStoreOption {
	return func(s *ChunkStore) { s.metrics = m }
}

// OpenChunkStore открывает (или создаёт) хранилище чанков в каталоге dbPath
func OpenChunkStore(dbPath string, opts ...ChunkStoreOption) (*ChunkStore, error) {
	badgerOpts := badger.DefaultOptions(dbPath)
	badgerOpts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		db.Close()
		return nil, fmt.Errorf("не удалось создать zstd decoder: %w", err)
	}

	s := &ChunkStore{
		db:       db,
		dbPath:   dbPath,
		isReady:  true,
		compress: true,
		encoder:  encoder,
		decoder:  decoder,
		saved:    make(map[vec.ChunkPos]uint64),
		log:      logging.GetStorageLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close закрывает хранилище
func (s *ChunkStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.isReady {
		return nil
	}

	s.isReady = false
	s.encoder.Close()
	s.decoder.Close()
	return s.db.Close()
}

// chunkKey создаёт ключ BadgerDB для чанка
func chunkKey(pos vec.ChunkPos) []byte {
	return []byte(fmt.Sprintf("chunk:%d:%d", pos.X, pos.Z))
}

// IsDirty сообщает, менялся ли чанк с последней записи или загрузки
func (s *ChunkStore) IsDirty(c *world.Chunk) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	saved, ok := s.saved[c.Pos]
	return !ok || saved != c.ModCount()
}

// SaveChunk записывает чанк, если он изменился. Возвращает true, если запись была.
func (s *ChunkStore) SaveChunk(c *world.Chunk) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.isReady {
		return false, ErrStorageClosed
	}

	modCount := c.ModCount()
	if saved, ok := s.saved[c.Pos]; ok && saved == modCount {
		return false, nil
	}

	data := s.encode(c.Snapshot())
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(chunkKey(c.Pos), data)
	})
	if err != nil {
		return false, fmt.Errorf("ошибка сохранения чанка %s в BadgerDB: %w", c.Pos, err)
	}

	s.saved[c.Pos] = modCount
	return true, nil
}

// SaveWorld записывает все изменённые чанки мира. Возвращает число записанных.
func (s *ChunkStore) SaveWorld(w *world.World) (int, error) {
	saved := 0
	for _, c := range w.Chunks() {
		ok, err := s.SaveChunk(c)
		if err != nil {
			return saved, err
		}
		if ok {
			saved++
		}
	}

	s.metrics.ChunksSaved(saved)
	if saved > 0 {
		s.log.Debug("💾 Сохранено чанков: %d", saved)
	}
	return saved, nil
}

// LoadChunk читает снимок чанка; false, если чанк не сохранялся
func (s *ChunkStore) LoadChunk(pos vec.ChunkPos) ([]tile.ID, bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return nil, false, ErrStorageClosed
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(chunkKey(pos))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("ошибка чтения чанка %s из BadgerDB: %w", pos, err)
	}

	tiles, err := s.decode(data)
	if err != nil {
		return nil, false, fmt.Errorf("чанк %s: %w", pos, err)
	}
	return tiles, true, nil
}

// LoadInto заполняет чанк сохранённым снимком; false, если снимка нет
func (s *ChunkStore) LoadInto(c *world.Chunk) (bool, error) {
	tiles, ok, err := s.LoadChunk(c.Pos)
	if err != nil || !ok {
		return false, err
	}
	c.Restore(tiles)

	s.mutex.Lock()
	s.saved[c.Pos] = c.ModCount()
	s.mutex.Unlock()
	return true, nil
}

// Source возвращает источник чанков: сохранённый снимок, иначе fallback.
// Ошибка чтения логируется, и чанк строится через fallback.
func (s *ChunkStore) Source(fallback world.ChunkSource) world.ChunkSource {
	return func(c *world.Chunk) string {
		ok, err := s.LoadInto(c)
		if err != nil {
			s.log.Error("Ошибка загрузки чанка %s: %v", c.Pos, err)
		}
		if ok {
			return "storage"
		}
		if fallback != nil {
			return fallback(c)
		}
		return "empty"
	}
}

// encode сериализует тайлы чанка
func (s *ChunkStore) encode(tiles []tile.ID) []byte {
	raw := make([]byte, rawChunkSize)
	for i, id := range tiles {
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(id))
	}

	if !s.compress {
		return append([]byte{formatRaw}, raw...)
	}
	return s.encoder.EncodeAll(raw, []byte{formatZstd})
}

// decode разбирает снимок любого поддерживаемого формата
func (s *ChunkStore) decode(data []byte) ([]tile.ID, error) {
	if len(data) == 0 {
		return nil, ErrCorruptedChunk
	}

	var raw []byte
	switch data[0] {
	case formatRaw:
		raw = data[1:]
	case formatZstd:
		var err error
		raw, err = s.decoder.DecodeAll(data[1:], make([]byte, 0, rawChunkSize))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptedChunk, err)
		}
	default:
		return nil, fmt.Errorf("%w: неизвестный формат %d", ErrCorruptedChunk, data[0])
	}

	if len(raw) != rawChunkSize {
		return nil, fmt.Errorf("%w: размер %d", ErrCorruptedChunk, len(raw))
	}

	tiles := make([]tile.ID, world.ChunkArea)
	for i := range tiles {
		tiles[i] = tile.ID(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return tiles, nil
}
