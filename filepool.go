package sfzcore

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/GeoffreyPlitt/debuggo"
)

var filePoolDebug = debuggo.Debug("sfzcore:filepool")

// FileHandle is one FilePool cache entry, shared across every voice playing
// the sample it names. preloadedPrefix is immutable once published;
// fullData transitions at most once from nil to non-nil via an atomic
// release-store the audio thread polls lock-free (§4.3/§5).
type FileHandle struct {
	Path           string
	NumChannels    int
	TotalFrames    int
	SampleRate     int
	RootKey        int
	LoopBegin      int64
	LoopEnd        int64
	HasLoop        bool
	PreloadedPrefix *StereoBuffer

	fullData atomic.Pointer[StereoBuffer]
	refCount int32
	lastUse  atomic.Int64 // unix nanos
}

// FullData polls the background-loaded complete buffer without blocking.
// Returns nil if the tail hasn't been streamed in yet.
func (h *FileHandle) FullData() *StereoBuffer {
	return h.fullData.Load()
}

func (h *FileHandle) publish(buf *StereoBuffer) {
	h.fullData.Store(buf)
}

// Retain/Release implement the handle's reference count; the cache itself
// holds one implicit reference while present in the map.
func (h *FileHandle) Retain() { atomic.AddInt32(&h.refCount, 1) }
func (h *FileHandle) Release() {
	atomic.AddInt32(&h.refCount, -1)
	h.touch()
}
func (h *FileHandle) touch() { h.lastUse.Store(time.Now().UnixNano()) }
func (h *FileHandle) activeUsers() int32 { return atomic.LoadInt32(&h.refCount) }

type streamRequest struct {
	handle    *FileHandle
	cancelled atomic.Bool
}

// Cancel marks a request dead so a late publish is silently dropped (§5
// "a streaming request whose voice has already ended is silently dropped").
func (r *streamRequest) Cancel() { r.cancelled.Store(true) }

// FilePool is the process-wide cache of loaded audio described in §4.3: a
// synchronous preload path plus N background loader goroutines draining a
// bounded MPSC request queue, with periodic idle-entry garbage collection.
type FilePool struct {
	decoder Decoder

	mu      sync.RWMutex
	entries map[string]*FileHandle

	preloadSize       int
	numLoaderThreads  int
	fileClearingPeriod time.Duration
	idleTimeout       time.Duration

	requests  chan *streamRequest
	wg        sync.WaitGroup
	closeOnce sync.Once
	closed    chan struct{}

	lastGC time.Time
}

// NewFilePool constructs a pool with the given preload size (in frames) and
// loader thread count (config::numLoadingThreads in the spec, typically 4).
func NewFilePool(decoder Decoder, preloadSize, numLoaderThreads int) *FilePool {
	if decoder == nil {
		decoder = NewDefaultDecoder()
	}
	if numLoaderThreads < 1 {
		numLoaderThreads = 1
	}
	p := &FilePool{
		decoder:            decoder,
		entries:            map[string]*FileHandle{},
		preloadSize:        preloadSize,
		numLoaderThreads:   numLoaderThreads,
		fileClearingPeriod: 10 * time.Second,
		idleTimeout:        30 * time.Second,
		requests:           make(chan *streamRequest, 256),
		closed:             make(chan struct{}),
	}
	for i := 0; i < numLoaderThreads; i++ {
		p.wg.Add(1)
		go p.loaderLoop()
	}
	return p
}

// Preload synchronously loads at least preloadSize frames of path and
// returns a shared handle, per §4.3's preload-request contract.
func (p *FilePool) Preload(path string) (*FileHandle, error) {
	p.mu.RLock()
	if h, ok := p.entries[path]; ok {
		p.mu.RUnlock()
		h.touch()
		filePoolDebug("preload cache hit: %s", path)
		return h, nil
	}
	p.mu.RUnlock()

	decoded, err := p.decoder.DecodePrefix(path, p.preloadSize)
	if err != nil {
		return nil, err
	}

	prefix := NewStereoBuffer(decoded.NumFrames)
	copy(prefix.Left(), decoded.Data[0])
	copy(prefix.Right(), decoded.Data[1])

	h := &FileHandle{
		Path:            path,
		NumChannels:     decoded.Channels,
		TotalFrames:     decoded.NumFrames,
		SampleRate:      decoded.SampleRate,
		RootKey:         decoded.RootKey,
		LoopBegin:       decoded.LoopBegin,
		LoopEnd:         decoded.LoopEnd,
		HasLoop:         decoded.HasLoop,
		PreloadedPrefix: prefix,
	}
	h.touch()

	// If the prefix decode already captured the whole file, publish it as
	// the full data immediately — no streaming request needed.
	if p.preloadSize <= 0 || decoded.NumFrames < p.preloadSize {
		h.publish(prefix)
	}

	p.mu.Lock()
	p.entries[path] = h
	p.mu.Unlock()

	filePoolDebug("preloaded %s: %d frames @ %d Hz", path, decoded.NumFrames, decoded.SampleRate)
	return h, nil
}

// RequestStream enqueues a background request to load the rest of path
// beyond the preloaded prefix. Returns a cancel handle and an error if the
// bounded queue is full (a recoverable condition per §4.3 — the voice just
// continues with the prefix).
func (p *FilePool) RequestStream(h *FileHandle) (*streamRequest, error) {
	if h.FullData() != nil {
		return nil, nil
	}
	req := &streamRequest{handle: h}
	select {
	case p.requests <- req:
		return req, nil
	default:
		filePoolDebug("stream queue full, dropping request for %s", h.Path)
		return nil, errQueueFull
	}
}

func (p *FilePool) loaderLoop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.closed:
			return
		case req := <-p.requests:
			p.serviceRequest(req)
		}
	}
}

func (p *FilePool) serviceRequest(req *streamRequest) {
	if req.cancelled.Load() {
		return
	}
	decoded, err := p.decoder.Decode(req.handle.Path)
	if err != nil {
		filePoolDebug("background load failed for %s: %v", req.handle.Path, err)
		return
	}
	if req.cancelled.Load() {
		return
	}
	full := NewStereoBuffer(decoded.NumFrames)
	copy(full.Left(), decoded.Data[0])
	copy(full.Right(), decoded.Data[1])
	req.handle.publish(full) // atomic release-store; audio thread polls lock-free
	filePoolDebug("background load complete for %s: %d frames", req.handle.Path, decoded.NumFrames)
}

// MaybeRunGC performs the periodic sweep described in §4.3 if
// fileClearingPeriod has elapsed since the last run, evicting entries whose
// last use predates idleTimeout and whose only reference is the cache's own.
// Intended to be called from the audio thread's non-blocking per-block timer
// check — it never blocks.
func (p *FilePool) MaybeRunGC(now time.Time) {
	if now.Sub(p.lastGC) < p.fileClearingPeriod {
		return
	}
	p.lastGC = now
	p.runGC(now)
}

func (p *FilePool) runGC(now time.Time) {
	if !p.mu.TryLock() {
		return
	}
	defer p.mu.Unlock()
	for path, h := range p.entries {
		if h.activeUsers() > 0 {
			continue
		}
		lastUse := time.Unix(0, h.lastUse.Load())
		if now.Sub(lastUse) >= p.idleTimeout {
			delete(p.entries, path)
			filePoolDebug("garbage collected %s", path)
		}
	}
}

// Size returns the number of cached entries (for tests/introspection).
func (p *FilePool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// Close drains all loader goroutines, used by Synth.SetActive(false) to make
// deactivation synchronous per §5.
func (p *FilePool) Close() {
	p.closeOnce.Do(func() {
		close(p.closed)
	})
	p.wg.Wait()
}

var errQueueFull = &poolError{"stream request queue full"}

type poolError struct{ msg string }

func (e *poolError) Error() string { return e.msg }
