package reporter

import (
	"fmt"
	"os"
	"sort"
	"time"

	"regime-bot-go/internal/models"
	"regime-bot-go/internal/performance"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Report 汇总一次运行（回测或实盘会话）的全部结果
type Report struct {
	Symbol         string
	DataPath       string
	StartTime      time.Time
	EndTime        time.Time
	InitialEquity  float64
	FinalEquity    float64
	MaxDrawdown    float64 // 分数，非百分比
	Summary        *performance.Summary
	SwitchHistory  []models.StrategySwitch
	OpenPosition   *models.Position
}

// Generate 根据引擎的最终状态构建报告
func Generate(symbol, dataPath string, initialEquity float64, trades []models.Trade,
	equityCurve []float64, switches []models.StrategySwitch, open *models.Position,
	startTime, endTime time.Time) *Report {

	finalEquity := initialEquity
	if len(equityCurve) > 0 {
		finalEquity = equityCurve[len(equityCurve)-1]
	}
	return &Report{
		Symbol:        symbol,
		DataPath:      dataPath,
		StartTime:     startTime,
		EndTime:       endTime,
		InitialEquity: initialEquity,
		FinalEquity:   finalEquity,
		MaxDrawdown:   performance.MaxDrawdown(equityCurve),
		Summary:       performance.Compute(trades, switches),
		SwitchHistory: switches,
		OpenPosition:  open,
	}
}

// Print 将报告以表格形式输出到标准输出
func (r *Report) Print() {
	fmt.Println("========== 运行结果报告 ==========")
	if r.DataPath != "" {
		fmt.Printf("数据文件:   %s\n", r.DataPath)
	}
	fmt.Printf("交易对:     %s\n", r.Symbol)
	if !r.StartTime.IsZero() {
		fmt.Printf("周期:       %s 到 %s\n",
			r.StartTime.Format("2006-01-02 15:04"), r.EndTime.Format("2006-01-02 15:04"))
	}

	r.printOverall()
	r.printByStrategy()
	r.printByRegime()
	r.printSwitches()

	if r.OpenPosition != nil {
		p := r.OpenPosition
		fmt.Printf("未平仓头寸: %s %.6f @ %.2f (策略 %s)\n",
			p.Side, p.Quantity, p.EntryPrice, p.StrategyName)
	}
}

func (r *Report) printOverall() {
	profit := r.FinalEquity - r.InitialEquity
	profitPct := 0.0
	if r.InitialEquity != 0 {
		profitPct = profit / r.InitialEquity * 100
	}

	t := newTable("总体表现")
	t.AppendHeader(table.Row{"指标", "数值"})
	t.AppendRows([]table.Row{
		{"初始资金", fmt.Sprintf("%.2f USDT", r.InitialEquity)},
		{"最终资金", fmt.Sprintf("%.2f USDT", r.FinalEquity)},
		{"总利润", fmt.Sprintf("%.2f USDT", profit)},
		{"收益率", fmt.Sprintf("%.2f%%", profitPct)},
		{"总交易次数", r.Summary.Overall.Trades},
		{"胜率", fmt.Sprintf("%.2f%%", r.Summary.Overall.WinRate*100)},
		{"平均每笔盈亏", fmt.Sprintf("%.2f USDT", r.Summary.Overall.AvgProfit)},
		{"最大回撤", fmt.Sprintf("%.2f%%", r.MaxDrawdown*100)},
		{"策略切换次数", r.Summary.Switches},
	})
	t.Render()
}

func (r *Report) printByStrategy() {
	if len(r.Summary.ByStrategy) == 0 {
		return
	}
	names := make([]string, 0, len(r.Summary.ByStrategy))
	for name := range r.Summary.ByStrategy {
		names = append(names, name)
	}
	sort.Strings(names)

	t := newTable("分策略表现")
	t.AppendHeader(table.Row{"策略", "交易数", "胜率", "平均盈亏", "总盈亏"})
	for _, name := range names {
		agg := r.Summary.ByStrategy[name]
		t.AppendRow(aggRow(name, agg))
	}
	t.Render()
}

func (r *Report) printByRegime() {
	if len(r.Summary.ByRegime) == 0 {
		return
	}
	regimes := make([]string, 0, len(r.Summary.ByRegime))
	for regime := range r.Summary.ByRegime {
		regimes = append(regimes, string(regime))
	}
	sort.Strings(regimes)

	t := newTable("分市场状态表现（按开仓时状态）")
	t.AppendHeader(table.Row{"市场状态", "交易数", "胜率", "平均盈亏", "总盈亏"})
	for _, regime := range regimes {
		agg := r.Summary.ByRegime[models.Regime(regime)]
		t.AppendRow(aggRow(regime, agg))
	}
	t.Render()
}

func (r *Report) printSwitches() {
	if len(r.SwitchHistory) == 0 {
		return
	}
	t := newTable("策略切换历史")
	t.AppendHeader(table.Row{"时间", "从", "到", "触发状态"})
	for _, sw := range r.SwitchHistory {
		from := sw.From
		if from == "" {
			from = "(无)"
		}
		t.AppendRow(table.Row{sw.Timestamp.Format("2006-01-02 15:04"), from, sw.To, sw.Reason})
	}
	t.Render()
}

func aggRow(label string, agg performance.Aggregate) table.Row {
	return table.Row{
		label,
		agg.Trades,
		fmt.Sprintf("%.2f%%", agg.WinRate*100),
		fmt.Sprintf("%.2f", agg.AvgProfit),
		fmt.Sprintf("%.2f", agg.TotalProfit),
	}
}

func newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(title)
	t.SetStyle(table.StyleLight)
	t.Style().Title.Align = text.AlignCenter
	return t
}
