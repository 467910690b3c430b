package project

type ChunkStatus string

const (
	ChunkPending   ChunkStatus = "pending"
	ChunkCompleted ChunkStatus = "completed"
	ChunkError     ChunkStatus = "error"
)

// Chunk is one bounded slice of a project's source text. Its ID doubles as its
// position in Project.Chunks and never changes for the life of the project.
type Chunk struct {
	ID     int         `json:"id"`
	Text   string      `json:"text"`
	Status ChunkStatus `json:"status"`
}

// Project is one document-to-speech conversion job. CompletedChunks is
// redundant with the chunk list and is recomputed on every store update;
// LastChunk is an independent reader cursor and must survive generation
// updates untouched.
type Project struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Voice           string  `json:"voice"`
	Speed           float64 `json:"speed"`
	Lang            string  `json:"lang"`
	TotalChunks     int     `json:"total_chunks"`
	CompletedChunks int     `json:"completed_chunks"`
	LastChunk       int     `json:"last_chunk"`
	IsFinished      bool    `json:"is_finished"`
	IsOptimized     bool    `json:"is_optimized,omitempty"`
	Chunks          []Chunk `json:"chunks"`
}

func (p Project) Clone() Project {
	out := p
	if p.Chunks != nil {
		out.Chunks = make([]Chunk, len(p.Chunks))
		copy(out.Chunks, p.Chunks)
	}
	return out
}

// ChunkByID returns a pointer into Chunks so mutators can update status in
// place. Chunk IDs equal slice positions, so this is an index lookup with a
// defensive scan fallback in case a decoded state file ever disagrees.
func (p *Project) ChunkByID(id int) (*Chunk, bool) {
	if id >= 0 && id < len(p.Chunks) && p.Chunks[id].ID == id {
		return &p.Chunks[id], true
	}
	for i := range p.Chunks {
		if p.Chunks[i].ID == id {
			return &p.Chunks[i], true
		}
	}
	return nil, false
}

// RecomputeCompleted re-derives the aggregate counter from the chunk list.
func (p *Project) RecomputeCompleted() int {
	n := 0
	for i := range p.Chunks {
		if p.Chunks[i].Status == ChunkCompleted {
			n++
		}
	}
	p.CompletedChunks = n
	return n
}

func (p Project) AllCompleted() bool {
	return p.TotalChunks > 0 && p.CompletedChunks >= p.TotalChunks
}
