package ml

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/coder/hnsw"

	"github.com/jayyoonakajaeha/MUSEED/pkg/e"
)

func init() {
	hnsw.RegisterDistanceFunc("cosine", hnsw.CosineDistance)
}

const (
	indexMagic   = uint32(0x4d555349) // "MUSI"
	indexVersion = uint32(1)

	graphM        = 16
	graphMl       = 0.25
	graphEfSearch = 50
)

// IndexItem — сущность с набором векторов (у трека один, у пользователя — центроиды профиля).
type IndexItem struct {
	ID      int64
	Vectors [][]float32
}

// indexSnapshot — иммутабельное состояние индекса. Ключ графа — позиция
// вектора, ids хранит обратное отображение позиции в ID сущности.
type indexSnapshot struct {
	graph *hnsw.Graph[int32]
	ids   []int64
}

// VectorIndex — ANN-индекс поверх HNSW с атомарной подменой снапшота.
// Поиск не блокируется перестройкой: читатели видят либо старый, либо
// новый снапшот целиком, но никогда частичный.
type VectorIndex struct {
	dim  int
	mu   sync.Mutex // сериализует Rebuild/Load, поиск идёт без блокировки
	snap atomic.Pointer[indexSnapshot]
}

func NewVectorIndex(dim int) *VectorIndex {
	return &VectorIndex{dim: dim}
}

func newGraph() *hnsw.Graph[int32] {
	g := hnsw.NewGraph[int32]()
	g.Distance = hnsw.CosineDistance
	g.M = graphM
	g.Ml = graphMl
	g.EfSearch = graphEfSearch

	return g
}

// Rebuild строит новый снапшот с нуля и атомарно публикует его.
// Векторы нормализуются при вставке, нулевые и неразмерные — ошибка.
func (i *VectorIndex) Rebuild(items []IndexItem) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	g := newGraph()

	ids := make([]int64, 0, len(items))
	for _, item := range items {
		for _, vec := range item.Vectors {
			if len(vec) != i.dim {
				return e.Wrap(fmt.Sprintf("index rebuild: entity %d", item.ID), e.ErrDimensionMismatch)
			}

			pos := int32(len(ids))
			ids = append(ids, item.ID)
			g.Add(hnsw.MakeNode(pos, NormalizeL2(vec)))
		}
	}

	i.snap.Store(&indexSnapshot{graph: g, ids: ids})

	return nil
}

// Ready сообщает, опубликован ли хоть один непустой снапшот.
func (i *VectorIndex) Ready() bool {
	snap := i.snap.Load()

	return snap != nil && len(snap.ids) > 0
}

// Len возвращает число векторов в текущем снапшоте.
func (i *VectorIndex) Len() int {
	snap := i.snap.Load()
	if snap == nil {
		return 0
	}

	return len(snap.ids)
}

// Search возвращает до k ID сущностей, ближайших к запросу, по убыванию
// близости. Дубликаты (несколько векторов одной сущности) схлопываются.
func (i *VectorIndex) Search(query []float32, k int) ([]int64, error) {
	snap := i.snap.Load()
	if snap == nil || len(snap.ids) == 0 {
		return nil, e.ErrIndexNotReady
	}

	if len(query) != i.dim {
		return nil, e.ErrDimensionMismatch
	}

	// запрашиваем с запасом: дубликаты сущностей съедают часть выдачи
	nodes := snap.graph.Search(NormalizeL2(query), k*2)

	result := make([]int64, 0, k)
	seen := make(map[int64]struct{}, k)
	for _, node := range nodes {
		id := snap.ids[node.Key]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		result = append(result, id)
		if len(result) == k {
			break
		}
	}

	return result, nil
}

// SearchMany выполняет поиск по каждому запросу и объединяет выдачи
// без дубликатов, сохраняя порядок первого вхождения.
func (i *VectorIndex) SearchMany(queries [][]float32, k int) ([]int64, error) {
	merged := make([]int64, 0, len(queries)*k)
	seen := make(map[int64]struct{})

	for _, query := range queries {
		ids, err := i.Search(query, k)
		if err != nil {
			return nil, err
		}

		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			merged = append(merged, id)
		}
	}

	return merged, nil
}

// Save сериализует текущий снапшот: заголовок, список ID, затем граф.
func (i *VectorIndex) Save(w io.Writer) error {
	snap := i.snap.Load()
	if snap == nil {
		return e.ErrIndexNotReady
	}

	header := []uint32{indexMagic, indexVersion, uint32(i.dim)}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return e.Wrap("index save: header", err)
		}
	}

	idsJSON, err := json.Marshal(snap.ids)
	if err != nil {
		return e.Wrap("index save: ids", err)
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(len(idsJSON))); err != nil {
		return e.Wrap("index save: ids length", err)
	}

	if _, err := w.Write(idsJSON); err != nil {
		return e.Wrap("index save: ids", err)
	}

	if err := snap.graph.Export(w); err != nil {
		return e.Wrap("index save: graph", err)
	}

	return nil
}

// Load читает сериализованный снапшот и атомарно публикует его.
func (i *VectorIndex) Load(r io.Reader) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	// граф при импорте читает uvarint-ы, поэтому нужен io.ByteReader
	br := bufio.NewReader(r)

	var magic, version, dim uint32
	for _, dst := range []*uint32{&magic, &version, &dim} {
		if err := binary.Read(br, binary.LittleEndian, dst); err != nil {
			return e.Wrap("index load: header", err)
		}
	}

	if magic != indexMagic {
		return e.Wrap("index load", fmt.Errorf("unexpected magic 0x%08x", magic))
	}
	if version != indexVersion {
		return e.Wrap("index load", fmt.Errorf("unsupported version %d", version))
	}
	if int(dim) != i.dim {
		return e.Wrap(fmt.Sprintf("index load: artifact dim %d, want %d", dim, i.dim), e.ErrDimensionMismatch)
	}

	var idsLen uint64
	if err := binary.Read(br, binary.LittleEndian, &idsLen); err != nil {
		return e.Wrap("index load: ids length", err)
	}

	idsJSON := make([]byte, idsLen)
	if _, err := io.ReadFull(br, idsJSON); err != nil {
		return e.Wrap("index load: ids", err)
	}

	var ids []int64
	if err := json.Unmarshal(idsJSON, &ids); err != nil {
		return e.Wrap("index load: ids", err)
	}

	g := newGraph()
	if err := g.Import(br); err != nil {
		return e.Wrap("index load: graph", err)
	}

	i.snap.Store(&indexSnapshot{graph: g, ids: ids})

	return nil
}
