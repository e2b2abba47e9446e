package svgcodec_test

import (
	"encoding/xml"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/sarmentow/codepencil/internal/notebook"
	"github.com/sarmentow/codepencil/internal/svgcodec"
)

func stroke(coords ...float64) notebook.Stroke {
	s := make(notebook.Stroke, 0, len(coords)/2)
	for i := 0; i+1 < len(coords); i += 2 {
		s = append(s, notebook.Point{X: coords[i], Y: coords[i+1], Pressure: 0.9, Timestamp: float64(i)})
	}
	return s
}

func TestEncodeProducesWellFormedSVG(t *testing.T) {
	doc := svgcodec.Encode([]notebook.Stroke{stroke(1, 2, 3.456, 4.321)}, 640, 480, 2.5, svgcodec.WithColor("#ff0000"))
	text := string(doc)

	assert.Contains(t, text, `xmlns="http://www.w3.org/2000/svg"`)
	assert.Contains(t, text, `viewBox="0 0 640 480"`)
	assert.Contains(t, text, `d="M 1.00 2.00 L 3.46 4.32"`)
	assert.Contains(t, text, `stroke="#ff0000"`)
	assert.Contains(t, text, `stroke-width="2.5"`)
	assert.Contains(t, text, `fill="none"`)
	assert.Contains(t, text, `stroke-linecap="round"`)
	assert.Contains(t, text, `stroke-linejoin="round"`)

	dec := xml.NewDecoder(strings.NewReader(text))
	for {
		_, err := dec.Token()
		if err != nil {
			require.EqualError(t, err, "EOF", "document must be well-formed XML")
			break
		}
	}
}

func TestEncodeOmitsEmptyStrokes(t *testing.T) {
	doc := svgcodec.Encode([]notebook.Stroke{{}, stroke(0, 0, 1, 1), nil}, 100, 100, 1)
	assert.Equal(t, 1, strings.Count(string(doc), "<path"))
}

func TestSinglePointStrokeSurvives(t *testing.T) {
	doc := svgcodec.Encode([]notebook.Stroke{stroke(10, 20)}, 100, 100, 3)
	assert.Contains(t, string(doc), `d="M 10.00 20.00 L 10.10 20.00"`)

	strokes, _, _ := svgcodec.Decode(doc)
	require.Len(t, strokes, 1)
	require.NotEmpty(t, strokes[0])
	assert.InDelta(t, 10, strokes[0][0].X, 0.001)
	assert.InDelta(t, 20, strokes[0][0].Y, 0.001)
}

func TestDecodeUsesPlaceholderMetadata(t *testing.T) {
	doc := svgcodec.Encode([]notebook.Stroke{stroke(1, 1, 2, 2, 3, 3)}, 100, 100, 3)
	strokes, _, _ := svgcodec.Decode(doc)
	require.Len(t, strokes, 1)
	for _, p := range strokes[0] {
		assert.Equal(t, 0.5, p.Pressure)
		assert.Equal(t, 0.0, p.Timestamp)
	}
}

func TestDecodeDimensions(t *testing.T) {
	cases := []struct {
		name  string
		doc   string
		wantW float64
		wantH float64
	}{
		{"viewBox wins", `<svg width="10" height="20" viewBox="0 0 300 150"></svg>`, 300, 150},
		{"comma viewBox", `<svg viewBox="0,0,320.5,99"></svg>`, 320.5, 99},
		{"attributes", `<svg width="640px" height="200"></svg>`, 640, 200},
		{"bad viewBox falls back to attributes", `<svg viewBox="0 0 abc" width="50" height="60"></svg>`, 50, 60},
		{"defaults", `<svg></svg>`, svgcodec.DefaultWidth, svgcodec.DefaultHeight},
		{"partial attributes", `<svg width="90"></svg>`, 90, svgcodec.DefaultHeight},
		{"not svg at all", `garbage`, svgcodec.DefaultWidth, svgcodec.DefaultHeight},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, w, h := svgcodec.Decode([]byte(tc.doc))
			assert.Equal(t, tc.wantW, w)
			assert.Equal(t, tc.wantH, h)
		})
	}
}

func TestDecodeToleratesForeignGeometry(t *testing.T) {
	doc := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100">
  <rect x="0" y="0" width="10" height="10"/>
  <path id="curve" d="C 1 2 3 4 5 6" fill="red"/>
  <path data-x="1" d='M10,20L30,40 C 1 1 2 2 3 3 L 50 60' stroke="#000"/>
  <path d="m 5 5 l 1 1"/>
  <path d=""/>
</svg>`
	strokes, w, h := svgcodec.Decode([]byte(doc))
	assert.Equal(t, 100.0, w)
	assert.Equal(t, 100.0, h)
	require.Len(t, strokes, 2)

	require.Len(t, strokes[0], 3)
	assert.Equal(t, 50.0, strokes[0][2].X)
	assert.Equal(t, 60.0, strokes[0][2].Y)

	require.Len(t, strokes[1], 2)
	assert.Equal(t, 6.0, strokes[1][1].X, "relative lineto resolves against previous point")
}

func TestRoundTripGeometryProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		count := rapid.IntRange(1, 5).Draw(t, "strokes")
		input := make([]notebook.Stroke, count)
		for i := range input {
			n := rapid.IntRange(2, 30).Draw(t, "points")
			s := make(notebook.Stroke, n)
			for j := range s {
				s[j] = notebook.Point{
					X:         rapid.Float64Range(-5000, 5000).Draw(t, "x"),
					Y:         rapid.Float64Range(-5000, 5000).Draw(t, "y"),
					Pressure:  rapid.Float64Range(0.01, 1).Draw(t, "p"),
					Timestamp: rapid.Float64Range(0, 1e6).Draw(t, "ts"),
				}
			}
			input[i] = s
		}
		w := rapid.Float64Range(1, 4000).Draw(t, "w")
		h := rapid.Float64Range(1, 4000).Draw(t, "h")

		got, gotW, gotH := svgcodec.Decode(svgcodec.Encode(input, w, h, 3))
		if gotW != w || gotH != h {
			t.Fatalf("dimensions %vx%v, want %vx%v", gotW, gotH, w, h)
		}
		if len(got) != len(input) {
			t.Fatalf("decoded %d strokes, want %d", len(got), len(input))
		}
		for i := range input {
			if len(got[i]) != len(input[i]) {
				t.Fatalf("stroke %d: %d points, want %d", i, len(got[i]), len(input[i]))
			}
			for j := range input[i] {
				if math.Abs(got[i][j].X-input[i][j].X) > 0.01 || math.Abs(got[i][j].Y-input[i][j].Y) > 0.01 {
					t.Fatalf("stroke %d point %d: got %+v want %+v", i, j, got[i][j], input[i][j])
				}
			}
		}
	})
}

func TestSniff(t *testing.T) {
	assert.True(t, svgcodec.Sniff(svgcodec.Encode(nil, 10, 10, 1)))
	assert.True(t, svgcodec.Sniff([]byte(`<?xml version="1.0"?><SVG></SVG>`)))
	assert.False(t, svgcodec.Sniff([]byte(`{"version":1}`)))
	assert.False(t, svgcodec.Sniff(nil))
}
