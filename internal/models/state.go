package models

import "time"

// StrategySwitch 记录一次策略切换
type StrategySwitch struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Timestamp time.Time `json:"timestamp"`
	Reason    Regime    `json:"reason"` // 触发切换的市场状态分类
}

// ActiveStrategyState 调度器独占的可变状态
type ActiveStrategyState struct {
	ActiveStrategy   string           `json:"active_strategy"` // 空串表示尚未激活任何策略
	ActivatedAt      time.Time        `json:"activated_at"`
	TicksSinceSwitch int              `json:"ticks_since_switch"`
	SwitchHistory    []StrategySwitch `json:"switch_history"`
}

// EngineState 定义了需要持久化的所有关键数据。
// 完整的一次 Save/Load 往返必须能重建等价的引擎状态。
type EngineState struct {
	Version        int                 `json:"version"` // 状态模型的版本号，用于未来迁移
	Symbol         string              `json:"symbol"`
	LastBarTime    time.Time           `json:"last_bar_time"` // 最后处理的K线时间戳
	Window         []Bar               `json:"window"`        // 分析窗口
	Equity         float64             `json:"equity"`        // 已实现口径的账户权益
	EquityCurve    []float64           `json:"equity_curve"`  // 每tick的市值序列
	Strategy       ActiveStrategyState `json:"strategy"`
	OpenPosition   *Position           `json:"open_position,omitempty"`
	TradeLog       []Trade             `json:"trade_log"`
	LastUpdateTime time.Time           `json:"last_update_time"`
}
