package anatomy

// HumanBody aggregates root-level organs by name. It owns its organs
// exclusively; each caller scopes its own body rather than sharing a
// process-wide instance.
type HumanBody struct {
	Organs map[string]*Organ
}

// NewHumanBody returns an empty body.
func NewHumanBody() *HumanBody {
	return &HumanBody{Organs: make(map[string]*Organ)}
}

// AddOrgan attaches a root-level organ; a name collision replaces the
// previous organ (last write wins).
func (b *HumanBody) AddOrgan(organ *Organ) {
	if b.Organs == nil {
		b.Organs = make(map[string]*Organ)
	}
	b.Organs[organ.Name] = organ
}

// RemoveOrgan detaches a root-level organ by name.
func (b *HumanBody) RemoveOrgan(name string) {
	delete(b.Organs, name)
}
