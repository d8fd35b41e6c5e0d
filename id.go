package depot

import "github.com/xraph/depot/id"

// ID is the primary identifier type for all Depot entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
