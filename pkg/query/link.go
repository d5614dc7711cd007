package query

// Command is the ELink command mode.
type Command string

const (
	CommandNeighbor        Command = "neighbor"
	CommandNeighborScore   Command = "neighbor_score"
	CommandNeighborHistory Command = "neighbor_history"
	CommandACheck          Command = "acheck"
	CommandNCheck          Command = "ncheck"
	CommandLCheck          Command = "lcheck"
	CommandLLinks          Command = "llinks"
	CommandLLinksLib       Command = "llinkslib"
	CommandPRLinks         Command = "prlinks"
)

// Commands lists every supported ELink command.
func Commands() []Command {
	return []Command{
		CommandNeighbor, CommandNeighborScore, CommandNeighborHistory,
		CommandACheck, CommandNCheck, CommandLCheck,
		CommandLLinks, CommandLLinksLib, CommandPRLinks,
	}
}

// Valid reports whether c is a known ELink command.
func (c Command) Valid() bool {
	for _, known := range Commands() {
		if c == known {
			return true
		}
	}
	return false
}

// LinkParams configures an ELink request.
type LinkParams struct {
	// IDs are UIDs from DatabaseFrom.
	IDs any

	// Database is the destination database; may be empty for check commands.
	Database string

	// DatabaseFrom is the origin database. When equal to Database, ELink
	// returns computational neighbours within that database.
	DatabaseFrom string

	// Command defaults to neighbor.
	Command Command
}

// Link finds UIDs linked to an input set of UIDs (elink).
type Link struct {
	base
	ids          []string
	databaseFrom string
	command      Command
}

// NewLink validates p and returns a link descriptor.
func NewLink(p LinkParams) (Link, error) {
	ids, err := normalizeIdentifiers(KindLink, p.IDs)
	if err != nil {
		return Link{}, err
	}
	cmd := p.Command
	if cmd == "" {
		cmd = CommandNeighbor
	}
	l := Link{
		base:         base{kind: KindLink, database: p.Database, method: MethodGet, endpoint: "elink"},
		ids:          ids,
		databaseFrom: p.DatabaseFrom,
		command:      cmd,
	}
	if err := l.Validate(); err != nil {
		return Link{}, err
	}
	l.warnUnknown()
	base{kind: l.kind, database: l.databaseFrom}.warnUnknown()
	return l, nil
}

// IDs returns a copy of the normalised identifiers.
func (l Link) IDs() []string { return copyIDs(l.ids) }

// WithIDs returns a copy for another identifier set.
func (l Link) WithIDs(ids any) (Link, error) {
	normalized, err := normalizeIdentifiers(l.kind, ids)
	if err != nil {
		return Link{}, err
	}
	l.ids = normalized
	if err := l.Validate(); err != nil {
		return Link{}, err
	}
	return l, nil
}

// DatabaseFrom returns the origin database.
func (l Link) DatabaseFrom() string { return l.databaseFrom }

// Command returns the ELink command.
func (l Link) Command() Command { return l.command }

// Validate implements Descriptor.
func (l Link) Validate() error {
	if l.databaseFrom == "" {
		return invalid(l.kind, "database_from", "origin database is required")
	}
	if len(l.ids) == 0 {
		return invalid(l.kind, "ids", "at least one identifier is required")
	}
	if !l.command.Valid() {
		return invalid(l.kind, "command", "unknown ELink command %q", l.command)
	}
	return nil
}

// Params implements Descriptor.
func (l Link) Params() Params {
	p := l.base.params()
	p.Set("dbfrom", l.databaseFrom)
	p.Set("id", joinIdentifiers(l.ids))
	p.Set("cmd", string(l.command))
	return p
}

// String implements Descriptor.
func (l Link) String() string {
	s := l.kind.QueryName() + " " + summarizeIdentifiers(l.ids) + " from " + l.databaseFrom
	if l.database != "" {
		s += " to " + l.database
	}
	return s
}
