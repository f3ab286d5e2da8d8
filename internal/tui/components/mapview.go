package components

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/paulmach/orb"

	"github.com/rendis/spottet/internal/engine/markers"
	"github.com/rendis/spottet/internal/model"
	"github.com/rendis/spottet/internal/tui/styles"
)

// MapView renders fountain markers around the user using Braille characters.
type MapView struct {
	width    int
	height   int
	markers  []markers.Marker
	user     *model.Coordinate
	selected string // fountain ID

	base      orb.Bound // fit-all bound, zoom reference
	view      orb.Bound
	zoomLevel float64 // 1.0 = fit all, >1 = zoomed in
	panLat    float64
	panLng    float64
}

func NewMapView(width, height int) MapView {
	return MapView{
		width:     width,
		height:    height,
		zoomLevel: 1.0,
	}
}

func (m *MapView) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *MapView) SetMarkers(ms []markers.Marker) {
	m.markers = ms
}

func (m *MapView) SetUser(c model.Coordinate) {
	m.user = &c
}

func (m *MapView) SetSelected(fountainID string) {
	m.selected = fountainID
}

// SetBound makes b the fit-all reference and keeps the current zoom and pan.
func (m *MapView) SetBound(b orb.Bound) {
	m.base = b
	m.applyZoom()
}

// Bound is the area currently on screen.
func (m MapView) Bound() orb.Bound {
	return m.view
}

func (m *MapView) ZoomIn() {
	m.zoomLevel *= 1.5
	if m.zoomLevel > 64 {
		m.zoomLevel = 64
	}
	m.applyZoom()
}

func (m *MapView) ZoomOut() {
	m.zoomLevel /= 1.5
	if m.zoomLevel < 0.5 {
		m.zoomLevel = 0.5
	}
	m.applyZoom()
}

// FitAll resets zoom and pan so the whole base bound is visible.
func (m *MapView) FitAll() {
	m.zoomLevel = 1.0
	m.panLat = 0
	m.panLng = 0
	m.applyZoom()
}

func (m *MapView) Pan(dLat, dLng float64) {
	m.panLat += dLat * m.base.Height() * 0.1 / m.zoomLevel
	m.panLng += dLng * m.base.Width() * 0.1 / m.zoomLevel
	m.applyZoom()
}

// CenterOn pans so c is in the middle of the view.
func (m *MapView) CenterOn(c model.Coordinate) {
	center := m.base.Center()
	m.panLat = c.Latitude - center.Lat()
	m.panLng = c.Longitude - center.Lon()
	m.applyZoom()
}

func (m *MapView) applyZoom() {
	center := m.base.Center()
	lat := center.Lat() + m.panLat
	lng := center.Lon() + m.panLng
	halfLat := m.base.Height() / 2 / m.zoomLevel
	halfLng := m.base.Width() / 2 / m.zoomLevel
	m.view = orb.Bound{
		Min: orb.Point{lng - halfLng, lat - halfLat},
		Max: orb.Point{lng + halfLng, lat + halfLat},
	}
}

// Braille character encoding:
// Each braille char is a 2x4 dot grid.
// Dot positions:  0 3
//
//	1 4
//	2 5
//	6 7
//
// Unicode: 0x2800 + sum of raised dot bits
var brailleDots = [8]rune{0x01, 0x02, 0x04, 0x08, 0x10, 0x20, 0x40, 0x80}

// layers in paint order; a later layer wins a shared cell.
const (
	layerWorking = iota
	layerBroken
	layerFavorite
	layerUser
	layerSelected
	layerCount
)

func (m MapView) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}

	cols := m.width
	rows := m.height
	dotW := cols * 2
	dotH := rows * 4

	latRange := m.view.Height()
	lngRange := m.view.Width()
	if latRange == 0 || lngRange == 0 {
		return strings.TrimSuffix(strings.Repeat(strings.Repeat(" ", cols)+"\n", rows), "\n")
	}

	// Aspect ratio correction: 1° lng is shorter than 1° lat away from the
	// equator, and braille dots are roughly square on screen.
	avgLat := m.view.Center().Lat()
	cosLat := math.Cos(avgLat * math.Pi / 180)
	geoAspect := lngRange * cosLat / latRange
	dotAspect := float64(dotW) / float64(dotH)

	effectiveW, effectiveH := dotW, dotH
	offsetX, offsetY := 0, 0
	if geoAspect < dotAspect {
		effectiveW = int(float64(dotH) * geoAspect)
		if effectiveW < 4 {
			effectiveW = 4
		}
		offsetX = (dotW - effectiveW) / 2
	} else {
		effectiveH = int(float64(dotW) / geoAspect)
		if effectiveH < 4 {
			effectiveH = 4
		}
		offsetY = (dotH - effectiveH) / 2
	}

	var grids [layerCount][][]bool
	for i := range grids {
		grids[i] = make([][]bool, dotH)
		for y := range grids[i] {
			grids[i][y] = make([]bool, dotW)
		}
	}

	toDot := func(c model.Coordinate) (int, int) {
		x := offsetX + int((c.Longitude-m.view.Min.Lon())/lngRange*float64(effectiveW-1))
		y := offsetY + int((m.view.Max.Lat()-c.Latitude)/latRange*float64(effectiveH-1))
		return x, y
	}
	plot := func(layer int, c model.Coordinate, size int) {
		x0, y0 := toDot(c)
		for dy := 0; dy < size; dy++ {
			for dx := 0; dx < size; dx++ {
				x, y := x0+dx, y0+dy
				if x >= 0 && x < dotW && y >= 0 && y < dotH {
					grids[layer][y][x] = true
				}
			}
		}
	}

	for _, mk := range m.markers {
		layer := layerWorking
		switch {
		case mk.FountainID == m.selected:
			layer = layerSelected
		case mk.Style.Emphasis == markers.EmphasisBounce:
			layer = layerFavorite
		case mk.Style.Variant == markers.VariantBroken:
			layer = layerBroken
		}
		size := 1
		if layer == layerSelected {
			size = 2
		}
		plot(layer, mk.Position, size)
	}
	if m.user != nil {
		plot(layerUser, *m.user, 2)
	}

	palette := [layerCount]lipgloss.Style{
		layerWorking:  lipgloss.NewStyle().Foreground(styles.Secondary),
		layerBroken:   lipgloss.NewStyle().Foreground(styles.Error),
		layerFavorite: lipgloss.NewStyle().Foreground(styles.Warning),
		layerUser:     lipgloss.NewStyle().Foreground(styles.Success).Bold(true),
		layerSelected: lipgloss.NewStyle().Foreground(styles.Primary).Bold(true),
	}
	dotPositions := [8][2]int{
		{0, 0}, {1, 0}, {2, 0}, {0, 1},
		{1, 1}, {2, 1}, {3, 0}, {3, 1},
	}

	var sb strings.Builder
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			var cell [layerCount]rune
			for dot := 0; dot < 8; dot++ {
				dy := row*4 + dotPositions[dot][0]
				dx := col*2 + dotPositions[dot][1]
				if dy >= dotH || dx >= dotW {
					continue
				}
				for layer := range grids {
					if grids[layer][dy][dx] {
						cell[layer] |= brailleDots[dot]
					}
				}
			}

			drawn := false
			for layer := layerCount - 1; layer >= 0; layer-- {
				if cell[layer] != 0 {
					sb.WriteString(palette[layer].Render(string(0x2800 + cell[layer])))
					drawn = true
					break
				}
			}
			if !drawn {
				sb.WriteRune(' ')
			}
		}
		if row < rows-1 {
			sb.WriteRune('\n')
		}
	}

	return sb.String()
}
