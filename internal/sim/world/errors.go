package world

import "blackflag.space/internal/protocol"

var (
	ErrUnknownPlanet = protocol.NewCodedError(protocol.ErrUnknownPlanet, "unknown planet")
	ErrRouteInvalid  = protocol.NewCodedError(protocol.ErrRouteInvalid, "route invalid")
	ErrUnknownBase   = protocol.NewCodedError(protocol.ErrBadRequest, "unknown pirate base")
	ErrDuplicateName = protocol.NewCodedError(protocol.ErrConflict, "duplicate name")
)
