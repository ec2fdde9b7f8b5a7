package workload

// bufferPool recycles scratch buffers used to encode trace records. Buffers
// that grew beyond maxRetained are dropped instead of being kept alive.
type bufferPool struct {
	pool        chan []byte
	initialCap  int
	maxRetained int
}

func newBufferPool(size, initialCap, maxRetained int) *bufferPool {
	return &bufferPool{
		pool:        make(chan []byte, size),
		initialCap:  initialCap,
		maxRetained: maxRetained,
	}
}

func (p *bufferPool) Get() []byte {
	select {
	case buf := <-p.pool:
		return buf
	default:
		return make([]byte, 0, p.initialCap)
	}
}

func (p *bufferPool) Put(buf []byte) {
	if cap(buf) > p.maxRetained {
		return
	}
	select {
	case p.pool <- buf[:0]:
	default:
	}
}
