// Package render draws a game state as a PNG image.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/rocketscienceinc/movechain/internal/board"
	"github.com/rocketscienceinc/movechain/internal/entity"
)

const (
	squareSize = 64
	margin     = 16
)

const (
	lightSquare = "#e9cfa3"
	darkSquare  = "#bb8860"
	player1Fill = "#f4f1ea"
	player2Fill = "#2b2b33"
	pieceStroke = "#111111"
	overOutline = "#d43d3d"
)

type BoardRenderer interface {
	RenderPNG(ctx context.Context, size int, state entity.GameState) ([]byte, error)
}

type svgBoardRenderer struct{}

func NewSVGBoardRenderer() BoardRenderer {
	return &svgBoardRenderer{}
}

// RenderPNG - the board is drawn with y growing downwards, matching the text rendering.
func (that *svgBoardRenderer) RenderPNG(ctx context.Context, size int, state entity.GameState) ([]byte, error) {
	dense, err := board.FromState(size, state)
	if err != nil {
		return nil, fmt.Errorf("failed to build board: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	document := boardSVG(dense, state.IsOver())
	side := size*squareSize + 2*margin

	icon, err := oksvg.ReadIconStream(strings.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("parse board svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(side), float64(side))

	img := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(side, side, img, img.Bounds())
	raster := rasterx.NewDasher(side, side, scanner)
	icon.Draw(raster, 1.0)

	var pngBuf bytes.Buffer
	if err = png.Encode(&pngBuf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}

	return pngBuf.Bytes(), nil
}

func boardSVG(dense *board.Board, over bool) string {
	size := dense.Size()
	side := size*squareSize + 2*margin

	var svg strings.Builder
	fmt.Fprintf(&svg, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`, side, side, side, side)

	for x := 0; x < size; x++ {
		for y := 0; y < size; y++ {
			fill := lightSquare
			if (x+y)%2 == 0 {
				fill = darkSquare
			}

			fmt.Fprintf(&svg, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s"/>`,
				margin+x*squareSize, margin+y*squareSize, squareSize, squareSize, fill)

			var pieceFill string
			switch dense.At(entity.Piece{X: x, Y: y}) {
			case board.Player1:
				pieceFill = player1Fill
			case board.Player2:
				pieceFill = player2Fill
			default:
				continue
			}

			cx := margin + x*squareSize + squareSize/2
			cy := margin + y*squareSize + squareSize/2
			fmt.Fprintf(&svg, `<circle cx="%d" cy="%d" r="%d" fill="%s" stroke="%s" stroke-width="2"/>`,
				cx, cy, squareSize*2/5, pieceFill, pieceStroke)
		}
	}

	if over {
		fmt.Fprintf(&svg, `<rect x="%d" y="%d" width="%d" height="%d" fill="none" stroke="%s" stroke-width="6"/>`,
			margin/2, margin/2, side-margin, side-margin, overOutline)
	}

	svg.WriteString(`</svg>`)

	return svg.String()
}
