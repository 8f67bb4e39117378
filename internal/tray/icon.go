package tray

import (
	"encoding/binary"
	"image/color"
	"math"

	"autoinput/internal/runner"
)

const iconSize = 16

var stateColors = map[runner.State]color.RGBA{
	runner.Idle:      {R: 0x8a, G: 0x8f, B: 0x98, A: 0xff},
	runner.Running:   {R: 0x2e, G: 0xa0, B: 0x43, A: 0xff},
	runner.Scheduled: {R: 0xd2, G: 0x99, B: 0x22, A: 0xff},
}

var stateIcons = func() map[runner.State][]byte {
	m := make(map[runner.State][]byte, len(stateColors))
	for s, c := range stateColors {
		m[s] = discIcon(c)
	}
	return m
}()

// iconFor returns the tray icon for s.
func iconFor(s runner.State) []byte {
	if b, ok := stateIcons[s]; ok {
		return b
	}
	return stateIcons[runner.Idle]
}

// discIcon renders a 16x16 32-bit ICO holding an anti-aliased disc in c on
// a transparent background.
func discIcon(c color.RGBA) []byte {
	const (
		headerLen = 6 + 16
		dibLen    = 40
		pixelLen  = iconSize * iconSize * 4
		maskLen   = iconSize * 4 // 1 bit per pixel, rows padded to 32 bits
	)
	imageLen := dibLen + pixelLen + maskLen

	b := make([]byte, 0, headerLen+imageLen)
	b = binary.LittleEndian.AppendUint16(b, 0) // reserved
	b = binary.LittleEndian.AppendUint16(b, 1) // icon
	b = binary.LittleEndian.AppendUint16(b, 1) // image count

	b = append(b, iconSize, iconSize, 0, 0)
	b = binary.LittleEndian.AppendUint16(b, 1)  // planes
	b = binary.LittleEndian.AppendUint16(b, 32) // bits per pixel
	b = binary.LittleEndian.AppendUint32(b, uint32(imageLen))
	b = binary.LittleEndian.AppendUint32(b, headerLen)

	b = binary.LittleEndian.AppendUint32(b, dibLen)
	b = binary.LittleEndian.AppendUint32(b, iconSize)
	b = binary.LittleEndian.AppendUint32(b, iconSize*2) // XOR and AND bitmaps
	b = binary.LittleEndian.AppendUint16(b, 1)
	b = binary.LittleEndian.AppendUint16(b, 32)
	b = binary.LittleEndian.AppendUint32(b, 0) // BI_RGB
	b = binary.LittleEndian.AppendUint32(b, pixelLen)
	b = append(b, make([]byte, 16)...) // resolution and palette fields

	const center, radius = (iconSize - 1) / 2.0, iconSize/2.0 - 1.5
	for y := iconSize - 1; y >= 0; y-- { // bottom-up rows
		for x := 0; x < iconSize; x++ {
			d := math.Hypot(float64(x)-center, float64(y)-center)
			cover := math.Max(0, math.Min(1, radius+0.5-d))
			b = append(b, c.B, c.G, c.R, uint8(math.Round(cover*float64(c.A))))
		}
	}
	return append(b, make([]byte, maskLen)...)
}
