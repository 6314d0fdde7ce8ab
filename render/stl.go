package render

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms3"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	stlHeaderSize     = 84
	stlTriangleSize   = 50
	trianglesInBuffer = 1 << 10
)

// CreateSTL writes the triangles of r to a binary STL file at path.
func CreateSTL(path string, r Renderer) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	// The triangle count is only known once r is drained.
	if _, err = file.Seek(stlHeaderSize, io.SeekStart); err != nil {
		return err
	}
	n, err := io.CopyBuffer(file, &stlReader{r: r}, make([]byte, stlTriangleSize*trianglesInBuffer))
	if err != nil {
		return err
	}
	if _, err = file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	header := stlHeader{Count: uint32(n / stlTriangleSize)}
	if err = binary.Write(file, binary.LittleEndian, &header); err != nil {
		return err
	}
	return file.Close()
}

// WriteSTL writes model to w in binary STL format.
func WriteSTL(w io.Writer, model []r3.Triangle) error {
	if len(model) == 0 {
		return errors.New("empty triangle slice")
	}
	header := stlHeader{Count: uint32(len(model))}
	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return err
	}
	var b [stlTriangleSize]byte
	for _, tri := range model {
		stlFrom(tri).put(b[:])
		if _, err := w.Write(b[:]); err != nil {
			return err
		}
	}
	return nil
}

// ReadSTL reads a binary STL model. Triangles holding NaN or infinite
// coordinates are rejected.
func ReadSTL(r io.Reader) (output []r3.Triangle, err error) {
	var header stlHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("STL header read failed: %w", err)
	}
	if header.Count == 0 {
		return nil, errors.New("STL header indicates 0 triangles present")
	}
	var (
		buf [stlTriangleSize]byte
		d   stlTriangle
	)
	output = make([]r3.Triangle, 0, header.Count)
	for i := 0; i < int(header.Count); i++ {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, fmt.Errorf("%d/%d STL triangles read: %w", i, header.Count, err)
		}
		d.get(buf[:])
		if bad3F32(d.Normal) || bad3F32(d.Vertex1) || bad3F32(d.Vertex2) || bad3F32(d.Vertex3) {
			return nil, fmt.Errorf("inf/NaN in STL triangle %d", i)
		}
		output = append(output, d.triangle())
	}
	return output, nil
}

// stlHeader defines the STL file header.
type stlHeader struct {
	_     [80]uint8 // Header
	Count uint32    // Number of triangles
}

// stlReader encodes the triangles of a Renderer as STL records.
type stlReader struct {
	r   Renderer
	buf [trianglesInBuffer]r3.Triangle
}

func (s *stlReader) Read(b []byte) (int, error) {
	ntMax := min(len(b)/stlTriangleSize, len(s.buf))
	if ntMax == 0 {
		return 0, errors.New("stlReader requires at least 50 bytes to write a single triangle")
	}
	nt, err := s.r.ReadTriangles(s.buf[:ntMax])
	if nt > ntMax {
		panic("bug: ReadTriangles read more triangles than available in buffer")
	}
	for i, tri := range s.buf[:nt] {
		stlFrom(tri).put(b[i*stlTriangleSize:])
	}
	return nt * stlTriangleSize, err
}

// stlTriangle defines the triangle data within an STL file.
type stlTriangle struct {
	Normal  ms3.Vec
	Vertex1 ms3.Vec
	Vertex2 ms3.Vec
	Vertex3 ms3.Vec
}

func stlFrom(t r3.Triangle) stlTriangle {
	var n r3.Vec
	if raw := t.Normal(); r3.Norm2(raw) > 0 {
		n = r3.Unit(raw)
	}
	return stlTriangle{
		Normal:  f32(n),
		Vertex1: f32(t[0]),
		Vertex2: f32(t[1]),
		Vertex3: f32(t[2]),
	}
}

func f32(v r3.Vec) ms3.Vec {
	return ms3.Vec{X: float32(v.X), Y: float32(v.Y), Z: float32(v.Z)}
}

func (t stlTriangle) put(b []byte) {
	if len(b) < stlTriangleSize {
		panic("need length 50 to marshal stlTriangle")
	}
	put3F32(b, t.Normal)
	put3F32(b[12:], t.Vertex1)
	put3F32(b[24:], t.Vertex2)
	put3F32(b[36:], t.Vertex3)
	binary.LittleEndian.PutUint16(b[48:], 0) // attribute byte count
}

func (t *stlTriangle) get(b []byte) {
	if len(b) < stlTriangleSize {
		panic("need length 50 to unmarshal stlTriangle")
	}
	get3F32(b, &t.Normal)
	get3F32(b[12:], &t.Vertex1)
	get3F32(b[24:], &t.Vertex2)
	get3F32(b[36:], &t.Vertex3)
}

func (t stlTriangle) triangle() r3.Triangle {
	return r3.Triangle{vec(t.Vertex1), vec(t.Vertex2), vec(t.Vertex3)}
}

func put3F32(b []byte, f ms3.Vec) {
	_ = b[11] // early bounds check
	binary.LittleEndian.PutUint32(b, math.Float32bits(f.X))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(f.Y))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(f.Z))
}

func get3F32(b []byte, f *ms3.Vec) {
	_ = b[11] // early bounds check
	f.X = math.Float32frombits(binary.LittleEndian.Uint32(b))
	f.Y = math.Float32frombits(binary.LittleEndian.Uint32(b[4:]))
	f.Z = math.Float32frombits(binary.LittleEndian.Uint32(b[8:]))
}

func bad3F32(f ms3.Vec) bool {
	return math32.IsNaN(f.X) || math32.IsInf(f.X, 0) ||
		math32.IsNaN(f.Y) || math32.IsInf(f.Y, 0) ||
		math32.IsNaN(f.Z) || math32.IsInf(f.Z, 0)
}
