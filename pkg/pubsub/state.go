package pubsub

import "sync/atomic"

// Role identifies which end of a connection a port registers as.
type Role uint32

const (
	RoleNone     Role = 0
	RoleSender   Role = 1 << 0
	RoleReceiver Role = 1 << 1
)

const markedForDestructionBit uint32 = 1 << 2

// connState is the connection's state byte: only compare-exchange
// transitions are allowed on it. Widened to a uint32 since Go has no
// atomic uint8, but only the low 3 bits are ever used.
type connState struct {
	bits atomic.Uint32
}

// Register attempts a compare-exchange transition adding role to the
// state. It fails with ErrAnotherInstanceIsAlreadyConnected if that role
// bit is already set, or ErrConnectionMarkedForDestruction if the
// connection is already being torn down.
func (s *connState) Register(role Role) error {
	for {
		cur := s.bits.Load()
		if cur&markedForDestructionBit != 0 {
			return ErrConnectionMarkedForDestruction
		}
		if cur&uint32(role) != 0 {
			return ErrAnotherInstanceIsAlreadyConnected
		}
		next := cur | uint32(role)
		if s.bits.CompareAndSwap(cur, next) {
			return nil
		}
	}
}

// Clear atomically clears role's bit. It reports whether this call
// transitioned the connection to MarkedForDestruction — true either
// because it was already marked, or because role was the only bit set,
// meaning the other side had already cleared (or never registered) and
// this was the last party still attached.
func (s *connState) Clear(role Role) (markedForDestruction bool) {
	for {
		cur := s.bits.Load()
		if cur&markedForDestructionBit != 0 {
			return true
		}
		if cur == uint32(role) {
			if s.bits.CompareAndSwap(cur, markedForDestructionBit) {
				return true
			}
			continue
		}
		next := cur &^ uint32(role)
		if s.bits.CompareAndSwap(cur, next) {
			return false
		}
	}
}

// Snapshot returns the currently registered roles, with the
// marked-for-destruction bit masked off.
func (s *connState) Snapshot() Role {
	return Role(s.bits.Load() &^ markedForDestructionBit)
}

// IsMarkedForDestruction reports whether the reaper should remove this
// connection.
func (s *connState) IsMarkedForDestruction() bool {
	return s.bits.Load()&markedForDestructionBit != 0
}
