package engine

// Board layout. Cells 0..63 form the main ring, clockwise. Each player p owns
// a four-cell kennel at 64+8p..67+8p and a four-cell finish corridor at
// 68+8p..71+8p. Player p enters the ring on cell 16p.
const (
	RingSize         = 64
	BoardSize        = 96
	MarblesPerPlayer = 4
	areaBase         = RingSize
	areaStride       = 8
	startStride      = RingSize / MaxPlayers
)

// CellRange is an inclusive range of board cells.
type CellRange struct {
	First uint8
	Last  uint8
}

// Contains reports whether pos lies in r.
func (r CellRange) Contains(pos uint8) bool { return pos >= r.First && pos <= r.Last }

// StartCell returns the ring cell where player p's marbles enter play.
func StartCell(p uint8) uint8 { return p * startStride }

// KennelRange returns player p's kennel cells.
func KennelRange(p uint8) CellRange {
	first := areaBase + p*areaStride
	return CellRange{First: first, Last: first + MarblesPerPlayer - 1}
}

// FinishRange returns player p's finish corridor, entrance first.
func FinishRange(p uint8) CellRange {
	first := areaBase + p*areaStride + MarblesPerPlayer
	return CellRange{First: first, Last: first + MarblesPerPlayer - 1}
}

// IsRing reports whether pos is on the main ring.
func IsRing(pos uint8) bool { return pos < RingSize }

// IsKennel reports whether pos is a kennel cell of any player.
func IsKennel(pos uint8) bool {
	return pos >= areaBase && pos < BoardSize && (pos-areaBase)%areaStride < MarblesPerPlayer
}

// IsFinish reports whether pos is a finish cell of any player.
func IsFinish(pos uint8) bool {
	return pos >= areaBase && pos < BoardSize && (pos-areaBase)%areaStride >= MarblesPerPlayer
}

// AreaOwner returns the player owning the kennel or finish cell pos.
// Only meaningful when IsKennel(pos) or IsFinish(pos).
func AreaOwner(pos uint8) uint8 { return (pos - areaBase) / areaStride }

// finishDepth returns how deep pos lies in its finish corridor (0 = entrance).
func finishDepth(pos uint8) uint8 { return (pos-areaBase)%areaStride - MarblesPerPlayer }

// ringAdd walks d cells along the ring (d may be negative).
func ringAdd(pos uint8, d int) uint8 {
	return uint8(((int(pos)+d)%RingSize + RingSize) % RingSize)
}
