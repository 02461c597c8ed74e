package components

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"spactl/internal/models"
	"spactl/internal/util"
)

// PlanItem represents a plan in the picker
type PlanItem struct {
	Plan    models.Plan
	Current bool
}

// FilterValue returns the filter value for the plan item
func (i PlanItem) FilterValue() string {
	return i.Plan.DisplayName + " " + string(i.Plan.Name)
}

// Title returns the title for the plan item
func (i PlanItem) Title() string {
	title := i.Plan.DisplayName
	if i.Current {
		title += " (current plan)"
	}
	if i.Plan.IsPopular {
		title += " ★ Most Popular"
	}
	return title
}

// Description returns the description for the plan item
func (i PlanItem) Description() string {
	return fmt.Sprintf("%s - %s", util.FormatPlanPrice(i.Plan), i.Plan.Description)
}

// PlanListModel lets the user pick a plan. Chosen is set when the user
// confirms with enter and stays nil when they quit.
type PlanListModel struct {
	List     list.Model
	Plans    []models.Plan
	Selected *models.Plan
	Chosen   *models.Plan
}

// NewPlanListModel creates a new plan picker
func NewPlanListModel(plans []models.Plan, current models.PlanName, width, height int) PlanListModel {
	listModel := list.New([]list.Item{}, list.NewDefaultDelegate(), width, height)
	listModel.Title = "Choose a plan"
	listModel.SetShowStatusBar(false)
	listModel.SetFilteringEnabled(true)
	listModel.Styles.Title = lipgloss.NewStyle().
		Foreground(lipgloss.Color("39")).
		Bold(true).
		MarginLeft(2)

	m := PlanListModel{List: listModel}
	m.SetPlans(plans, current)
	return m
}

// SetPlans sets the plans in the list, cheapest first
func (m *PlanListModel) SetPlans(plans []models.Plan, current models.PlanName) {
	sorted := make([]models.Plan, len(plans))
	copy(sorted, plans)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Price < sorted[j].Price
	})
	m.Plans = sorted

	items := make([]list.Item, len(sorted))
	for i, p := range sorted {
		items[i] = PlanItem{Plan: p, Current: p.Name == current}
	}
	m.List.SetItems(items)
	m.syncSelected()
}

func (m *PlanListModel) syncSelected() {
	if item, ok := m.List.SelectedItem().(PlanItem); ok {
		p := item.Plan
		m.Selected = &p
	} else {
		m.Selected = nil
	}
}

func (m PlanListModel) Init() tea.Cmd {
	return nil
}

// Update handles plan list updates
func (m PlanListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.List.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.List.FilterState() != list.Filtering {
			switch msg.String() {
			case "enter":
				m.syncSelected()
				if m.Selected != nil {
					chosen := *m.Selected
					m.Chosen = &chosen
					return m, tea.Quit
				}
			case "q":
				return m, tea.Quit
			}
		}
	}

	var cmd tea.Cmd
	m.List, cmd = m.List.Update(msg)
	m.syncSelected()

	return m, cmd
}

// View renders the plan list
func (m PlanListModel) View() string {
	return m.List.View()
}
