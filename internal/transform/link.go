package transform

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/hybridsim/internal/dynamo"
)

// Local directions of a two-node link.
const (
	DirUX = iota
	DirUY
	DirUZ
	DirRX
	DirRY
	DirRZ
)

var dirNames = map[int]string{
	DirUX: "ux", DirUY: "uy", DirUZ: "uz",
	DirRX: "rx", DirRY: "ry", DirRZ: "rz",
}

func DirName(d int) string {
	if n, ok := dirNames[d]; ok {
		return n
	}
	return fmt.Sprintf("dir%d", d)
}

// ParseDir accepts a direction name such as "ux" or "rz".
func ParseDir(name string) (int, error) {
	for d, n := range dirNames {
		if n == name {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown direction: %s", name)
}

// localIndex maps a local direction to its position inside one node's block
// of the local vector, or -1 when the DOF configuration lacks it.
func localIndex(ndm, ndf, dir int) int {
	switch {
	case ndm == 1 && ndf == 1:
		if dir == DirUX {
			return 0
		}
	case ndm == 2 && ndf == 2:
		if dir <= DirUY {
			return dir
		}
	case ndm == 2 && ndf == 3:
		switch dir {
		case DirUX, DirUY:
			return dir
		case DirRZ:
			return 2
		}
	case ndm == 3 && ndf == 3:
		if dir <= DirUZ {
			return dir
		}
	case ndm == 3 && ndf == 6:
		if dir >= 0 && dir <= DirRZ {
			return dir
		}
	}
	return -1
}

type LinkOptions struct {
	XAxis      []float64
	YAxis      []float64
	ShearDistI float64
}

func DefaultLinkOptions() LinkOptions {
	return LinkOptions{ShearDistI: 0.5}
}

// TwoNodeLink is a general two-node component tested along a subset of its
// six local directions. Shear in uy and uz is measured relative to the chord
// rotation, split between the nodes by ShearDistI.
type TwoNodeLink struct {
	Linear
	name     string
	ndm, ndf int
	dirs     []int
	opts     LinkOptions
	length   float64
	frame    Frame
}

func NewTwoNodeLink(ndm, ndf int, dirs []int, opts LinkOptions) (*TwoNodeLink, error) {
	if localIndex(ndm, ndf, DirUX) < 0 {
		return nil, fmt.Errorf("%w: twoNodeLink ndm=%d ndf=%d", dynamo.ErrDOFMismatch, ndm, ndf)
	}
	if len(dirs) == 0 {
		return nil, fmt.Errorf("%w: twoNodeLink needs at least one direction", dynamo.ErrDOFMismatch)
	}
	seen := map[int]bool{}
	for _, d := range dirs {
		if localIndex(ndm, ndf, d) < 0 {
			return nil, fmt.Errorf("%w: direction %s not available for ndm=%d ndf=%d", dynamo.ErrDOFMismatch, DirName(d), ndm, ndf)
		}
		if seen[d] {
			return nil, fmt.Errorf("%w: duplicate direction %s", dynamo.ErrDOFMismatch, DirName(d))
		}
		seen[d] = true
	}
	if opts.ShearDistI < 0 || opts.ShearDistI > 1 {
		return nil, fmt.Errorf("shear distance ratio %g outside [0,1]", opts.ShearDistI)
	}
	return &TwoNodeLink{
		name: "twoNodeLink",
		ndm:  ndm,
		ndf:  ndf,
		dirs: append([]int(nil), dirs...),
		opts: opts,
	}, nil
}

// NewBearing returns a link tested in the axial, shear and rotational
// directions of an elastomeric or sliding bearing.
func NewBearing(ndm int, opts LinkOptions) (*TwoNodeLink, error) {
	var (
		l   *TwoNodeLink
		err error
	)
	switch ndm {
	case 2:
		l, err = NewTwoNodeLink(2, 3, []int{DirUX, DirUY, DirRZ}, opts)
	case 3:
		l, err = NewTwoNodeLink(3, 6, []int{DirUX, DirUY, DirUZ, DirRX, DirRY, DirRZ}, opts)
	default:
		return nil, fmt.Errorf("%w: bearing ndm=%d", dynamo.ErrDOFMismatch, ndm)
	}
	if err != nil {
		return nil, err
	}
	l.name = "bearing"
	return l, nil
}

func (l *TwoNodeLink) Name() string    { return l.name }
func (l *TwoNodeLink) NumNodes() int   { return 2 }
func (l *TwoNodeLink) NDM() int        { return l.ndm }
func (l *TwoNodeLink) DOFPerNode() int { return l.ndf }
func (l *TwoNodeLink) NumDOF() int     { return 2 * l.ndf }
func (l *TwoNodeLink) NumBasic() int   { return len(l.dirs) }
func (l *TwoNodeLink) Length() float64 { return l.length }
func (l *TwoNodeLink) Frame() Frame    { return l.frame }
func (l *TwoNodeLink) Dirs() []int     { return l.dirs }

func (l *TwoNodeLink) Layout() Layout {
	out := noLayout()
	out.NodeDOF = l.ndf
	for i, d := range l.dirs {
		if d == DirUX {
			out.AxialDir = i
		}
	}
	pair := func(dir int) [2]int {
		i := localIndex(l.ndm, l.ndf, dir)
		if i < 0 {
			return [2]int{-1, -1}
		}
		return [2]int{i, l.ndf + i}
	}
	out.ShearY = pair(DirUY)
	out.ShearZ = pair(DirUZ)
	out.RotY = pair(DirRY)
	out.RotZ = pair(DirRZ)
	return out
}

func (l *TwoNodeLink) Build(coords [][]float64) error {
	f, length, err := BuildFrame(coordsOf(coords, 0, l.ndm), coordsOf(coords, 1, l.ndm), l.opts.XAxis, l.opts.YAxis)
	if err != nil {
		return err
	}
	l.frame, l.length = f, length

	nl := 2 * l.ndf
	l.Tgl = mat.NewDense(nl, nl, nil)
	rot := f.Matrix()
	for node := 0; node < 2; node++ {
		off := node * l.ndf
		switch {
		case l.ndm == 2 && l.ndf == 3:
			for a := 0; a < 2; a++ {
				for b := 0; b < 2; b++ {
					l.Tgl.Set(off+a, off+b, rot.At(a, b))
				}
			}
			l.Tgl.Set(off+2, off+2, rot.At(2, 2))
		case l.ndf == 6:
			for a := 0; a < 3; a++ {
				for b := 0; b < 3; b++ {
					l.Tgl.Set(off+a, off+b, rot.At(a, b))
					l.Tgl.Set(off+3+a, off+3+b, rot.At(a, b))
				}
			}
		default:
			for a := 0; a < l.ndf; a++ {
				for b := 0; b < l.ndm; b++ {
					l.Tgl.Set(off+a, off+b, rot.At(a, b))
				}
			}
		}
	}

	s := l.opts.ShearDistI
	l.Tlb = mat.NewDense(len(l.dirs), nl, nil)
	rz := localIndex(l.ndm, l.ndf, DirRZ)
	ry := localIndex(l.ndm, l.ndf, DirRY)
	for i, d := range l.dirs {
		li := localIndex(l.ndm, l.ndf, d)
		l.Tlb.Set(i, li, -1)
		l.Tlb.Set(i, l.ndf+li, 1)
		switch {
		case d == DirUY && rz >= 0:
			l.Tlb.Set(i, rz, -s*length)
			l.Tlb.Set(i, l.ndf+rz, -(1-s)*length)
		case d == DirUZ && ry >= 0:
			l.Tlb.Set(i, ry, s*length)
			l.Tlb.Set(i, l.ndf+ry, (1-s)*length)
		}
	}
	return nil
}
