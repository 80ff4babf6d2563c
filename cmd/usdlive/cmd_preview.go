package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chazu/usdlive/pkg/kernel/backend"
	"github.com/chazu/usdlive/pkg/scene"
	"github.com/chazu/usdlive/pkg/tessellate"
)

// sampleCmd prints every prim's attributes at one time code
var sampleCmd = &cobra.Command{
	Use:   "sample [file]",
	Short: "Evaluate the composed stage at a time code",
	Long: `Resolves the file and prints each prim's attributes at --time, with
time samples interpolated and unauthored attributes at their defaults.
Rotations are shown in degrees.

Example:
  usdlive sample spin.usda --time 12`,
	Args: cobra.ExactArgs(1),
	RunE: runSample,
}

// meshCmd tessellates the composed stage
var meshCmd = &cobra.Command{
	Use:   "mesh [file]",
	Short: "Tessellate the composed stage and summarize the meshes",
	Args:  cobra.ExactArgs(1),
	RunE:  runMesh,
}

func init() {
	sampleCmd.Flags().Float64VarP(&timeCode, "time", "t", 0, "Time code to evaluate at")
	sampleCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the samples as JSON")
	meshCmd.Flags().Float64VarP(&timeCode, "time", "t", 0, "Time code to evaluate at")
}

// sampleRow is one prim evaluated at a time code.
type sampleRow struct {
	Path     string         `json:"path"`
	Type     scene.PrimType `json:"type"`
	Position scene.Vec3     `json:"position"`
	Rotation scene.Vec3     `json:"rotationDegrees"`
	Scale    scene.Vec3     `json:"scale"`
	Radius   float64        `json:"radius,omitempty"`
	Size     float64        `json:"size,omitempty"`
	Height   float64        `json:"height,omitempty"`
	Color    *scene.Vec3    `json:"color,omitempty"`
}

func samplePrims(prims []*scene.Prim, t float64) []sampleRow {
	rows := []sampleRow{}
	scene.Walk(prims, func(path string, p *scene.Prim) bool {
		snap := p.Evaluate(t)
		row := sampleRow{
			Path:     path,
			Type:     snap.Type,
			Position: snap.Position,
			Rotation: snap.Rotation.Degrees(),
			Scale:    snap.Scale,
		}
		switch snap.Type {
		case scene.TypeSphere:
			row.Radius = snap.Radius
		case scene.TypeCube:
			row.Size = snap.Size
		case scene.TypeCylinder, scene.TypeCone:
			row.Radius, row.Height = snap.Radius, snap.Height
		}
		if snap.Type.IsGeometry() {
			c := snap.Color
			row.Color = &c
		}
		rows = append(rows, row)
		return true
	})
	return rows
}

func runSample(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	_, res, err := composeFile(store, args[0])
	if err != nil {
		return err
	}
	rows := samplePrims(res.Prims, timeCode)

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(rows); err != nil {
			return err
		}
	} else {
		tbl := newTable("PATH", "TYPE", "POSITION", "ROTATE°", "SCALE", "DIMENSIONS")
		for _, r := range rows {
			tbl.Row(r.Path, r.Type.String(), formatVec(r.Position), formatVec(r.Rotation), formatVec(r.Scale), dimensions(r))
		}
		fmt.Fprintln(cmd.OutOrStdout(), tbl.Render())
	}
	printErrors(cmd, res.Errors)
	return errorCount(len(res.Errors))
}

func runMesh(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	_, res, err := composeFile(store, args[0])
	if err != nil {
		return err
	}

	preview := settings().Preview
	k, err := backend.New(preview.Kernel, preview.MeshCells)
	if err != nil {
		return err
	}
	meshes, err := tessellate.Tessellate(res.Prims, timeCode, k)
	if err != nil {
		currentLogger().Debug("tessellate", zap.Error(err))
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}

	tbl := newTable("PATH", "VERTICES", "TRIANGLES", "MIN", "MAX")
	for _, m := range meshes {
		lo, hi, _ := m.Bounds()
		tbl.Row(m.PrimPath,
			strconv.Itoa(m.VertexCount()),
			strconv.Itoa(m.TriangleCount()),
			formatVec32(lo), formatVec32(hi))
	}
	fmt.Fprintln(cmd.OutOrStdout(), tbl.Render())
	fmt.Fprintf(cmd.OutOrStdout(), "%d meshes at t=%g\n", len(meshes), timeCode)

	printErrors(cmd, res.Errors)
	return errorCount(len(res.Errors))
}

func newTable(headers ...string) *table.Table {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
}

func dimensions(r sampleRow) string {
	switch r.Type {
	case scene.TypeSphere:
		return "r=" + formatFloat(r.Radius)
	case scene.TypeCube:
		return "size=" + formatFloat(r.Size)
	case scene.TypeCylinder, scene.TypeCone:
		return "r=" + formatFloat(r.Radius) + " h=" + formatFloat(r.Height)
	}
	return ""
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func formatVec(v scene.Vec3) string {
	return fmt.Sprintf("(%s, %s, %s)", formatFloat(v[0]), formatFloat(v[1]), formatFloat(v[2]))
}

func formatVec32(v [3]float32) string {
	return formatVec(scene.Vec3{float64(v[0]), float64(v[1]), float64(v[2])})
}
