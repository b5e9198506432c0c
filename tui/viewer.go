// Package tui 是一个终端查看器：每次窗口尺寸变化都在后台重新两端对齐，
// 旧尺寸的结果到达时直接丢弃。
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ByLCY/justext/justify"
	"github.com/ByLCY/justext/reflow"
	"github.com/ByLCY/justext/termtext"
)

const target = "viewer"

// Options 配置查看器。
type Options struct {
	Title   string
	Seed    uint64
	Justify []justify.Option    // 额外的 justify 选项（细空格、上限等）
	Measure justify.MeasureFunc // 默认 termtext.Measure
}

// Model 是 bubbletea 模型。
type Model struct {
	text    string
	opts    Options
	seed    uint64
	results chan reflow.Result
	sched   *reflow.Scheduler

	frame  lipgloss.Style
	header lipgloss.Style
	footer lipgloss.Style
	vp     viewport.Model

	width, height int
	budget        float64
	gen           uint64
	content       string
}

type resultMsg reflow.Result

// New 创建查看器模型。
func New(text string, opts Options) *Model {
	if opts.Measure == nil {
		opts.Measure = termtext.Measure
	}
	if opts.Title == "" {
		opts.Title = "justext"
	}
	m := &Model{
		text:    text,
		opts:    opts,
		seed:    opts.Seed,
		results: make(chan reflow.Result, 4),
		frame:   termtext.FrameStyle(),
		header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		footer:  lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		vp:      viewport.New(termtext.DefaultWidth, 20),
	}
	m.sched = reflow.NewScheduler(m.justifier())
	return m
}

func (m *Model) justifier() *justify.Justifier {
	opts := append([]justify.Option{}, m.opts.Justify...)
	opts = append(opts, justify.WithSeed(m.seed))
	return justify.New(m.opts.Measure, opts...)
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd { return m.listen() }

func (m *Model) listen() tea.Cmd {
	return func() tea.Msg {
		res, ok := <-m.results
		if !ok {
			return nil
		}
		return resultMsg(res)
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.submit()
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.sched.Close()
			return m, tea.Quit
		case "r":
			// 换一个种子重新分布细空格
			m.seed++
			m.submit()
			return m, nil
		}
	case resultMsg:
		if msg.Generation == m.gen && msg.Budget == m.budget {
			m.content = msg.Text
			m.vp.SetContent(msg.Text)
		}
		return m, m.listen()
	}
	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.budget = termtext.Budget(width, &m.frame)
	vpHeight := height - m.frame.GetVerticalFrameSize() - 2 // 标题与状态栏
	cols, err := termtext.Columns(max(m.budget, 0))
	if err != nil {
		cols = 0
	}
	m.vp.Width = cols
	m.vp.Height = max(vpHeight, 1)
}

func (m *Model) submit() {
	// 宽度未知或非正时不排版
	ok := m.sched.SubmitWith(context.Background(), target, m.justifier(), m.text, m.budget, m.deliver)
	if ok {
		m.gen = m.sched.Generation(target)
	}
}

// deliver 在调度器锁内执行，不能阻塞：通道满时丢掉最旧的结果。
func (m *Model) deliver(r reflow.Result) {
	for {
		select {
		case m.results <- r:
			return
		default:
		}
		select {
		case <-m.results:
		default:
		}
	}
}

// Content 返回最近一次被接受的排版结果。
func (m *Model) Content() string { return m.content }

// visible 返回视口滚动位置内的行，不足视口高度时补空行。
// viewport 自带的渲染会按宽度重新折行，这里只借用它的滚动状态。
func (m *Model) visible() string {
	lines := strings.Split(m.content, "\n")
	start := min(max(m.vp.YOffset, 0), len(lines))
	end := min(start+m.vp.Height, len(lines))
	rows := make([]string, 0, m.vp.Height)
	rows = append(rows, lines[start:end]...)
	for len(rows) < m.vp.Height {
		rows = append(rows, "")
	}
	return strings.Join(rows, "\n")
}

// View implements tea.Model.
func (m *Model) View() string {
	title := m.header.Render(m.opts.Title)
	body := termtext.Frame(m.visible(), m.frame, float64(m.vp.Width))
	status := m.footer.Render(fmt.Sprintf("width %.0f · seed %d · q quit · r reshuffle", m.budget, m.seed))
	return lipgloss.JoinVertical(lipgloss.Left, title, body, status)
}

// Run 启动全屏查看器。
func Run(text string, opts Options) error {
	p := tea.NewProgram(New(text, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
