package handlers

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"sigs.k8s.io/yaml"

	"github.com/imamik/chainfleet/internal/deployment"
	"github.com/imamik/chainfleet/internal/placement"
	"github.com/imamik/chainfleet/internal/tasks"
)

var (
	colorGreen = lipgloss.Color("#22c55e")
	colorRed   = lipgloss.Color("#ef4444")
	colorBlue  = lipgloss.Color("#3b82f6")
	colorDim   = lipgloss.Color("#6b7280")
	colorWhite = lipgloss.Color("#f9fafb")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBlue)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	greenStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	redStyle = lipgloss.NewStyle().
			Foreground(colorRed)
)

// Format selects how results are written.
type Format int

// Output formats.
const (
	FormatAuto Format = iota
	FormatStyled
	FormatYAML
)

func isInteractiveTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func (f Format) styled() bool {
	switch f {
	case FormatStyled:
		return true
	case FormatYAML:
		return false
	default:
		return isInteractiveTTY()
	}
}

func writeYAML(w io.Writer, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// planView is the machine-readable form of a dry-run placement.
type planView struct {
	Replicas       int                   `json:"replicas"`
	Placement      []placement.Entry     `json:"placement"`
	BySite         map[string]int        `json:"bySite,omitempty"`
	BlockchainType string                `json:"blockchainType"`
	Components     []placement.Component `json:"components"`
}

func newPlanView(spec *placement.Specification, model deployment.ModelSpec) planView {
	return planView{
		Replicas:       spec.Size(),
		Placement:      spec.Entries,
		BySite:         spec.CountBySite(),
		BlockchainType: string(model.BlockchainType),
		Components:     model.Components,
	}
}

func renderPlan(spec *placement.Specification, model deployment.ModelSpec) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(titleStyle.Render(fmt.Sprintf("  chainfleet plan: %s", model.BlockchainType)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  " + strings.Repeat("═", 30)))
	b.WriteString("\n\n")

	b.WriteString(sectionStyle.Render("  Placement"))
	b.WriteString("\n")
	for i, e := range spec.Entries {
		site := e.Site
		if site == "" {
			site = dimStyle.Render("(orchestrator choice)")
		}
		fmt.Fprintf(&b, "    replica %-3d %-12s %s\n", i, e.Type, site)
	}

	counts := spec.CountBySite()
	if len(counts) > 0 {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render("  Sites"))
		b.WriteString("\n")
		sites := make([]string, 0, len(counts))
		for site := range counts {
			sites = append(sites, site)
		}
		slices.Sort(sites)
		for _, site := range sites {
			fmt.Fprintf(&b, "    %-12s %d\n", site, counts[site])
		}
	}

	b.WriteString("\n")
	b.WriteString(renderComponents(model.Components))
	return b.String()
}

func renderComponents(components []placement.Component) string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("  Components"))
	b.WriteString("\n")
	for _, c := range components {
		fmt.Fprintf(&b, "    %-24s %s\n", c.ServiceType, dimStyle.Render(c.Image))
	}
	return b.String()
}

func taskIndicator(state tasks.State) string {
	switch state {
	case tasks.Succeeded:
		return greenStyle.Render("✅")
	case tasks.Failed:
		return redStyle.Render("❌")
	default:
		return "⏳"
	}
}

func renderTasks(list []*tasks.Task) string {
	if len(list) == 0 {
		return dimStyle.Render("  no tasks") + "\n"
	}
	var b strings.Builder
	for _, t := range list {
		fmt.Fprintf(&b, "  %s  %s  %-9s %s", taskIndicator(t.State), t.ID, t.State, t.Message)
		if t.ResourceLink != "" {
			b.WriteString("  ")
			b.WriteString(dimStyle.Render(t.ResourceLink))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func writeTasks(w io.Writer, format Format, list []*tasks.Task) error {
	if !format.styled() {
		return writeYAML(w, list)
	}
	_, err := io.WriteString(w, renderTasks(list))
	return err
}

func renderBlockchains(consortium string, ids []string) string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("  Blockchains of " + consortium))
	b.WriteString("\n")
	if len(ids) == 0 {
		b.WriteString(dimStyle.Render("    none visible"))
		b.WriteString("\n")
		return b.String()
	}
	for _, id := range ids {
		fmt.Fprintf(&b, "    %s\n", id)
	}
	return b.String()
}
