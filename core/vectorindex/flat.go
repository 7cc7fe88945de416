package vectorindex

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/siherrmann/hybridqa/helper"
	"github.com/siherrmann/hybridqa/model"
)

// FlatIndex is a flat similarity index over raw embedding vectors, paired
// 1:1 with a chunk metadata table keyed by insertion position. Distances are
// squared L2 over the raw vectors, no normalization. The vector list and the
// metadata table are only ever written together.
type FlatIndex struct {
	dim      int
	vectors  [][]float32
	metadata []*model.Chunk
}

// persistedVectors is the on-disk shape of the vector half of the index.
type persistedVectors struct {
	Dim     int
	Vectors [][]float32
}

// NewFlatIndex creates an empty index for vectors of the given dimension.
func NewFlatIndex(dim int) (*FlatIndex, error) {
	if dim <= 0 {
		return nil, helper.NewError("create index", fmt.Errorf("dimension must be positive: %w", helper.ErrConfiguration))
	}

	return &FlatIndex{dim: dim}, nil
}

// Dimension returns the vector dimension of the index.
func (f *FlatIndex) Dimension() int {
	return f.dim
}

// Count returns the number of indexed vectors. It always equals the length
// of the metadata table.
func (f *FlatIndex) Count() int {
	return len(f.vectors)
}

// Add appends a vector and its chunk record at the same position.
func (f *FlatIndex) Add(vector []float32, chunk *model.Chunk) error {
	if len(vector) != f.dim {
		return helper.NewError("add vector", fmt.Errorf("vector dimension %d does not match index dimension %d", len(vector), f.dim))
	}
	if chunk == nil {
		return helper.NewError("add vector", fmt.Errorf("chunk metadata is nil"))
	}

	f.vectors = append(f.vectors, vector)
	f.metadata = append(f.metadata, chunk)
	return nil
}

// Search returns up to topK chunk records ordered by ascending squared L2
// distance to the query vector. Insertion order breaks distance ties.
func (f *FlatIndex) Search(query []float32, topK int) ([]*model.Chunk, error) {
	if len(query) != f.dim {
		return nil, helper.NewError("search", fmt.Errorf("query dimension %d does not match index dimension %d", len(query), f.dim))
	}
	if topK <= 0 || len(f.vectors) == 0 {
		return nil, nil
	}

	type scored struct {
		position int
		distance float64
	}

	results := make([]scored, len(f.vectors))
	for i, vector := range f.vectors {
		var distance float64
		for j := range vector {
			d := float64(vector[j] - query[j])
			distance += d * d
		}
		results[i] = scored{position: i, distance: distance}
	}

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].distance < results[b].distance
	})

	if topK > len(results) {
		topK = len(results)
	}

	chunks := make([]*model.Chunk, 0, topK)
	for _, result := range results[:topK] {
		chunk := *f.metadata[result.position]
		chunk.Distance = result.distance
		chunk.RetrievalMethod = model.RetrievalMethodVector
		chunks = append(chunks, &chunk)
	}

	return chunks, nil
}

// Save persists the index and its metadata table as a paired unit under the
// path stem: "<stem>.index" (gob vectors) and "<stem>.meta.json".
func (f *FlatIndex) Save(pathStem string) error {
	indexFile, err := os.Create(pathStem + ".index")
	if err != nil {
		return helper.NewError("save index", err)
	}
	defer indexFile.Close()

	err = gob.NewEncoder(indexFile).Encode(persistedVectors{Dim: f.dim, Vectors: f.vectors})
	if err != nil {
		return helper.NewError("encode index", err)
	}

	metaFile, err := os.Create(pathStem + ".meta.json")
	if err != nil {
		return helper.NewError("save metadata", err)
	}
	defer metaFile.Close()

	err = json.NewEncoder(metaFile).Encode(f.metadata)
	if err != nil {
		return helper.NewError("encode metadata", err)
	}

	return nil
}

// Load restores an index saved with Save. A missing artifact, either half,
// fails with ErrNotFound; a vector/metadata length mismatch fails with
// ErrConsistency.
func Load(pathStem string) (*FlatIndex, error) {
	indexFile, err := os.Open(pathStem + ".index")
	if os.IsNotExist(err) {
		return nil, helper.NewError("load index", fmt.Errorf("index artifact %s.index: %w", pathStem, helper.ErrNotFound))
	} else if err != nil {
		return nil, helper.NewError("load index", err)
	}
	defer indexFile.Close()

	var persisted persistedVectors
	err = gob.NewDecoder(indexFile).Decode(&persisted)
	if err != nil {
		return nil, helper.NewError("decode index", err)
	}

	metaFile, err := os.Open(pathStem + ".meta.json")
	if os.IsNotExist(err) {
		return nil, helper.NewError("load metadata", fmt.Errorf("metadata artifact %s.meta.json: %w", pathStem, helper.ErrNotFound))
	} else if err != nil {
		return nil, helper.NewError("load metadata", err)
	}
	defer metaFile.Close()

	var metadata []*model.Chunk
	err = json.NewDecoder(metaFile).Decode(&metadata)
	if err != nil {
		return nil, helper.NewError("decode metadata", err)
	}

	if len(persisted.Vectors) != len(metadata) {
		return nil, helper.NewError("load index", fmt.Errorf("index has %d vectors but metadata has %d entries: %w", len(persisted.Vectors), len(metadata), helper.ErrConsistency))
	}

	return &FlatIndex{
		dim:      persisted.Dim,
		vectors:  persisted.Vectors,
		metadata: metadata,
	}, nil
}
