package crisp

import (
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
)

// fanOut resolves a sequence member selector: "all" addresses every member,
// a decimal index addresses one. Anything else is rejected.
func fanOut(sel string, n int) ([]int, error) {
	if sel == "all" {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out, nil
	}
	i, err := strconv.Atoi(sel)
	if err != nil {
		return nil, fmt.Errorf("crisp: member selector %q not understood, expected \"all\" or an index", sel)
	}
	if i < 0 || i >= n {
		return nil, fmt.Errorf("crisp: member index %d out of range (%d members)", i, n)
	}
	return []int{i}, nil
}

// Sequence is an ordered list of narrowband observations, usually a time
// series or a multi-line set observed together.
type Sequence struct {
	members []*Crisp
}

// NewSequence opens each path in order.
func NewSequence(paths []string, opts Options) (*Sequence, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("crisp: a sequence needs at least one member")
	}
	members := make([]*Crisp, 0, len(paths))
	for _, p := range paths {
		c, err := Open(p, opts)
		if err != nil {
			return nil, fmt.Errorf("crisp: sequence member %s: %w", p, err)
		}
		members = append(members, c)
	}
	return &Sequence{members: members}, nil
}

// SequenceOf wraps already-constructed observations.
func SequenceOf(members ...*Crisp) (*Sequence, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("crisp: a sequence needs at least one member")
	}
	return &Sequence{members: members}, nil
}

// Len returns the number of members.
func (s *Sequence) Len() int { return len(s.members) }

// Member returns the i-th observation.
func (s *Sequence) Member(i int) (*Crisp, error) {
	if i < 0 || i >= len(s.members) {
		return nil, fmt.Errorf("crisp: member index %d out of range (%d members)", i, len(s.members))
	}
	return s.members[i], nil
}

// Members returns the backing member list.
func (s *Sequence) Members() []*Crisp { return s.members }

// Info returns the summaries of every member, in order.
func (s *Sequence) Info() string {
	var b strings.Builder
	for i, m := range s.members {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s", i, m.Info())
	}
	return b.String()
}

func (s *Sequence) String() string { return s.Info() }

// ToLonLat delegates the coordinate lookup to the first member; members of
// a sequence share pointing.
func (s *Sequence) ToLonLat(y, x int) (lon, lat float64, err error) {
	return s.members[0].ToLonLat(y, x)
}

// FromLonLat delegates the coordinate lookup to the first member.
func (s *Sequence) FromLonLat(lon, lat float64) (y, x int, err error) {
	return s.members[0].FromLonLat(lon, lat)
}

// SpectrumPlots renders spectrum plots for the selected members.
func (s *Sequence) SpectrumPlots(sel string) ([]*plot.Plot, error) {
	idxs, err := fanOut(sel, len(s.members))
	if err != nil {
		return nil, err
	}
	plots := make([]*plot.Plot, 0, len(idxs))
	for _, i := range idxs {
		p, err := s.members[i].SpectrumPlot()
		if err != nil {
			return nil, fmt.Errorf("member %d: %w", i, err)
		}
		plots = append(plots, p)
	}
	return plots, nil
}

// StokesPlots renders Stokes profile plots for the selected members.
func (s *Sequence) StokesPlots(sel, components string) ([]*plot.Plot, error) {
	idxs, err := fanOut(sel, len(s.members))
	if err != nil {
		return nil, err
	}
	plots := make([]*plot.Plot, 0, len(idxs))
	for _, i := range idxs {
		p, err := s.members[i].StokesPlot(components)
		if err != nil {
			return nil, fmt.Errorf("member %d: %w", i, err)
		}
		plots = append(plots, p)
	}
	return plots, nil
}

// IntensityMapPlots renders intensity maps for the selected members.
func (s *Sequence) IntensityMapPlots(sel, frame, colormap string) ([]*plot.Plot, error) {
	idxs, err := fanOut(sel, len(s.members))
	if err != nil {
		return nil, err
	}
	plots := make([]*plot.Plot, 0, len(idxs))
	for _, i := range idxs {
		p, err := s.members[i].IntensityMapPlot(frame, colormap)
		if err != nil {
			return nil, fmt.Errorf("member %d: %w", i, err)
		}
		plots = append(plots, p)
	}
	return plots, nil
}

// RotateCrop applies the rotate-crop to the selected members, each using
// its own geometry.
func (s *Sequence) RotateCrop(sel string) error {
	idxs, err := fanOut(sel, len(s.members))
	if err != nil {
		return err
	}
	for _, i := range idxs {
		if err := s.members[i].RotateCrop(); err != nil {
			return fmt.Errorf("member %d: %w", i, err)
		}
	}
	return nil
}

// RotateCropAligned crops the first two members with the geometry of the
// first, the convention for co-temporal narrowband/wideband pairs.
func (s *Sequence) RotateCropAligned() error {
	if len(s.members) < 2 {
		return fmt.Errorf("crisp: aligned rotate-crop needs at least two members, have %d", len(s.members))
	}
	cr, err := s.members[0].resolveCrop()
	if err != nil {
		return err
	}
	for i, m := range s.members[:2] {
		if err := applyCrop(m, cr); err != nil {
			return fmt.Errorf("member %d: %w", i, err)
		}
	}
	return nil
}

// ReconstructFullFrame reverses the rotate-crop on the selected members.
func (s *Sequence) ReconstructFullFrame(sel string) error {
	idxs, err := fanOut(sel, len(s.members))
	if err != nil {
		return err
	}
	for _, i := range idxs {
		if err := s.members[i].ReconstructFullFrame(); err != nil {
			return fmt.Errorf("member %d: %w", i, err)
		}
	}
	return nil
}

// WidebandSequence is an ordered list of wideband context images.
type WidebandSequence struct {
	members []*CrispWideband
}

// NewWidebandSequence opens each path in order.
func NewWidebandSequence(paths []string, opts Options) (*WidebandSequence, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("crisp: a sequence needs at least one member")
	}
	members := make([]*CrispWideband, 0, len(paths))
	for _, p := range paths {
		w, err := OpenWideband(p, opts)
		if err != nil {
			return nil, fmt.Errorf("crisp: sequence member %s: %w", p, err)
		}
		members = append(members, w)
	}
	return &WidebandSequence{members: members}, nil
}

// Len returns the number of members.
func (s *WidebandSequence) Len() int { return len(s.members) }

// Members returns the backing member list.
func (s *WidebandSequence) Members() []*CrispWideband { return s.members }

// Info returns the summaries of every member, in order.
func (s *WidebandSequence) Info() string {
	var b strings.Builder
	for i, m := range s.members {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s", i, m.Info())
	}
	return b.String()
}

func (s *WidebandSequence) String() string { return s.Info() }

// IntensityMapPlots renders context maps for the selected members.
func (s *WidebandSequence) IntensityMapPlots(sel, frame, colormap string) ([]*plot.Plot, error) {
	idxs, err := fanOut(sel, len(s.members))
	if err != nil {
		return nil, err
	}
	plots := make([]*plot.Plot, 0, len(idxs))
	for _, i := range idxs {
		p, err := s.members[i].IntensityMapPlot(frame, colormap)
		if err != nil {
			return nil, fmt.Errorf("member %d: %w", i, err)
		}
		plots = append(plots, p)
	}
	return plots, nil
}

// NonUSequence is an ordered list of non-uniformly sampled observations.
type NonUSequence struct {
	members []*CrispNonU
}

// NewNonUSequence opens each path in order.
func NewNonUSequence(paths []string, opts Options) (*NonUSequence, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("crisp: a sequence needs at least one member")
	}
	members := make([]*CrispNonU, 0, len(paths))
	for _, p := range paths {
		n, err := OpenNonU(p, opts)
		if err != nil {
			return nil, fmt.Errorf("crisp: sequence member %s: %w", p, err)
		}
		members = append(members, n)
	}
	return &NonUSequence{members: members}, nil
}

// Len returns the number of members.
func (s *NonUSequence) Len() int { return len(s.members) }

// Members returns the backing member list.
func (s *NonUSequence) Members() []*CrispNonU { return s.members }

// Info returns the summaries of every member, in order.
func (s *NonUSequence) Info() string {
	var b strings.Builder
	for i, m := range s.members {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s", i, m.Info())
	}
	return b.String()
}

func (s *NonUSequence) String() string { return s.Info() }

// SpectrumPlots renders spectrum plots for the selected members.
func (s *NonUSequence) SpectrumPlots(sel string) ([]*plot.Plot, error) {
	idxs, err := fanOut(sel, len(s.members))
	if err != nil {
		return nil, err
	}
	plots := make([]*plot.Plot, 0, len(idxs))
	for _, i := range idxs {
		p, err := s.members[i].SpectrumPlot()
		if err != nil {
			return nil, fmt.Errorf("member %d: %w", i, err)
		}
		plots = append(plots, p)
	}
	return plots, nil
}
