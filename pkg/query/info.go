package query

// Info lists all databases, or describes one database's fields and links (einfo).
type Info struct {
	base
}

// NewInfo returns an info descriptor; an empty database lists all databases.
func NewInfo(database string) (Info, error) {
	i := Info{base: base{kind: KindInfo, database: database, method: MethodGet, endpoint: "einfo"}}
	if err := i.Validate(); err != nil {
		return Info{}, err
	}
	i.warnUnknown()
	return i, nil
}

// Validate implements Descriptor.
func (Info) Validate() error { return nil }

// Params implements Descriptor.
func (i Info) Params() Params { return i.base.params() }

// String implements Descriptor.
func (i Info) String() string {
	if i.database == "" {
		return i.kind.QueryName() + " for all databases"
	}
	return i.kind.QueryName() + i.inDatabase()
}
