package display

import (
	"image"

	"github.com/go-vgo/robotgo"
)

// RobotClicker replays clicks with robotgo.
type RobotClicker struct{}

func (RobotClicker) Click(p image.Point) error {
	robotgo.Move(p.X, p.Y)
	robotgo.Click("left", false)
	return nil
}
