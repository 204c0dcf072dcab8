package walk

import (
	"math"
	"sync"
)

// MineCell is where the miner stands in the shaft
type MineCell struct {
	Row         int     `json:"row"` // 0 is the bottom row
	X           float64 `json:"x"`   // pixels from the left edge of the miner sprite
	Y           float64 `json:"y"`   // pixels from the top edge of the miner sprite
	FacingRight bool    `json:"facing_right"`
}

// MineShaft projects progress onto a wall of rows mined bottom to top,
// alternating left-to-right and right-to-left
type MineShaft struct {
	Width   float64
	Height  float64
	BlockPx float64

	mu   sync.Mutex
	cell MineCell
}

// NewMineShaft returns a shaft of the given pixel size
func NewMineShaft(width, height, blockPx float64) *MineShaft {
	return &MineShaft{Width: width, Height: height, BlockPx: blockPx}
}

// Rows returns the number of rows in the wall
func (m *MineShaft) Rows() int {
	if m.BlockPx <= 0 {
		return 0
	}
	return int(math.Ceil(m.Height / m.BlockPx))
}

// Cell returns the miner position for progress
func (m *MineShaft) Cell(progress float64) MineCell {
	rows := m.Rows()
	if rows == 0 || m.Width <= 0 {
		return MineCell{FacingRight: true}
	}

	progress = clampProgress(progress)
	total := float64(rows) * m.Width
	current := progress * total

	row := int(math.Floor(current / m.Width))
	if row >= rows {
		row = rows - 1
	}
	along := current - float64(row)*m.Width

	facingRight := row%2 == 0
	x := along
	if !facingRight {
		x = m.Width - along
	}
	y := m.Height - float64(row+1)*m.BlockPx

	return MineCell{
		Row:         row,
		X:           math.Max(0, math.Min(m.Width-m.BlockPx, x-m.BlockPx/2)),
		Y:           math.Max(0, math.Min(m.Height-m.BlockPx, y)),
		FacingRight: facingRight,
	}
}

// Render updates the current cell from the frame's progress
func (m *MineShaft) Render(frame Frame) {
	cell := m.Cell(frame.Progress)
	m.mu.Lock()
	m.cell = cell
	m.mu.Unlock()
}

// Current returns the most recently rendered cell
func (m *MineShaft) Current() MineCell {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cell
}
