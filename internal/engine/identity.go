package engine

// AppIdentityTable maps transient app ids to stable app names. At most one
// name holds a given id; a later claim on the id unresolves the previous holder.
type AppIdentityTable struct {
	byName map[string]string
	byID   map[string]string
}

// NewAppIdentityTable returns an empty table.
func NewAppIdentityTable() *AppIdentityTable {
	return &AppIdentityTable{
		byName: make(map[string]string),
		byID:   make(map[string]string),
	}
}

// Claim assigns id to name.
func (t *AppIdentityTable) Claim(name, id string) {
	if holder, ok := t.byID[id]; ok && holder != name {
		t.byName[holder] = ""
	}
	if old := t.byName[name]; old != "" && old != id && t.byID[old] == name {
		delete(t.byID, old)
	}
	t.byName[name] = id
	t.byID[id] = name
}

// Resolve returns the name currently holding id.
func (t *AppIdentityTable) Resolve(id string) (string, bool) {
	name, ok := t.byID[id]
	return name, ok
}

// ID returns the id currently held by name; "" when unresolved.
func (t *AppIdentityTable) ID(name string) string {
	return t.byName[name]
}

// Len returns the number of names ever seen.
func (t *AppIdentityTable) Len() int {
	return len(t.byName)
}
