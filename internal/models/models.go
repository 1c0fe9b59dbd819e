package models

import "time"

// Config 结构体定义了机器人的所有配置参数
type Config struct {
	Symbol          string           `json:"symbol"`                     // 交易对，如 "BTCUSDT"
	DBPath          string           `json:"db_path"`                    // 数据库文件路径（live 模式状态持久化）
	InitialEquity   float64          `json:"initial_equity"`             // 初始账户权益 (USDT)
	WindowSize      int              `json:"window_size"`                // 分析窗口的K线数量
	LiveInterval    string           `json:"live_interval"`              // live 模式K线周期, e.g. "1m"
	Detector        DetectorConfig   `json:"detector"`                   // 市场状态检测配置
	Dispatcher      DispatcherConfig `json:"dispatcher"`                 // 策略切换配置
	Strategies      StrategiesConfig `json:"strategies"`                 // 各策略参数
	LogConfig       LogConfig        `json:"log"`                        // 日志配置
	LiveWSURL       string           `json:"live_ws_url,omitempty"`      // WebSocket基础地址，空则使用默认生产网
	BackfillPadding int              `json:"backfill_padding,omitempty"` // live 启动时额外回填的K线数量
}

// DetectorConfig 定义了市场状态分类的全部阈值
type DetectorConfig struct {
	TrendBullPct    float64         `json:"trend_bull_pct"`   // 趋势分数的牛/熊边界 (e.g. 5)
	TrendStrongPct  float64         `json:"trend_strong_pct"` // 强趋势边界 (e.g. 15)
	VolLowPct       float64         `json:"vol_low_pct"`      // 低波动上限, ATR/价格 (e.g. 0.02)
	VolHighPct      float64         `json:"vol_high_pct"`     // 高波动下限 (e.g. 0.06)
	MomentumWeights MomentumWeights `json:"momentum_weights"` // 动量子指标权重
	HighVolDamping  float64         `json:"high_vol_damping"` // 高波动时置信度阻尼系数 (e.g. 0.8)
}

// MomentumWeights 动量复合指标的权重
type MomentumWeights struct {
	RSI  float64 `json:"rsi"`
	MACD float64 `json:"macd"`
	ROC  float64 `json:"roc"`
}

// DispatcherConfig 定义了策略切换的迟滞规则
type DispatcherConfig struct {
	MinTicksBetweenSwitches   int     `json:"min_ticks_between_switches"`  // 两次切换之间的最小tick数, 0 表示仅按置信度门控
	BreakoutMomentumThreshold float64 `json:"breakout_momentum_threshold"` // SIDEWAYS 下选择突破策略的动量阈值
}

// StrategyConfig 单个策略变体的参数
type StrategyConfig struct {
	MinConfidence float64 `json:"min_confidence"`  // 激活所需的最小置信度
	BaseRiskPct   float64 `json:"base_risk_pct"`   // 基础风险比例 (占账户权益)
	StopLossPct   float64 `json:"stop_loss_pct"`   // 止损比例
	TakeProfitPct float64 `json:"take_profit_pct"` // 止盈比例
}

// StrategiesConfig 五个策略变体的参数集合
type StrategiesConfig struct {
	TrendFollowing     StrategyConfig `json:"trend_following"`
	RangeTrading       StrategyConfig `json:"range_trading"`
	VolatilityBreakout StrategyConfig `json:"volatility_breakout"`
	MomentumScalping   StrategyConfig `json:"momentum_scalping"`
	Defensive          StrategyConfig `json:"defensive"`
	BreakoutK          float64        `json:"breakout_k"` // 突破触发系数 K, 0.2–1.0
}

// LogConfig 定义了日志相关的配置
type LogConfig struct {
	Level      string `json:"level"`       // 日志级别, e.g., "debug", "info", "warn", "error"
	Output     string `json:"output"`      // 输出模式: "console", "file", "both"
	File       string `json:"file"`        // 日志文件路径
	MaxSize    int    `json:"max_size"`    // 单个日志文件的最大大小 (MB)
	MaxBackups int    `json:"max_backups"` // 保留的旧日志文件最大数量
	MaxAge     int    `json:"max_age"`     // 旧日志文件的最大保留天数
	Compress   bool   `json:"compress"`    // 是否压缩旧日志文件
}

// Bar 一根K线 (OHLCV)
type Bar struct {
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// Regime 离散的市场状态分类
type Regime string

const (
	StrongBull Regime = "STRONG_BULL"
	Bull       Regime = "BULL"
	Sideways   Regime = "SIDEWAYS"
	Bear       Regime = "BEAR"
	StrongBear Regime = "STRONG_BEAR"
)

// Direction 返回该状态的预期方向: +1 看多, -1 看空, 0 中性
func (r Regime) Direction() int {
	switch r {
	case StrongBull, Bull:
		return 1
	case StrongBear, Bear:
		return -1
	default:
		return 0
	}
}

// VolatilityLevel 波动水平分桶
type VolatilityLevel string

const (
	VolLow    VolatilityLevel = "LOW"
	VolMedium VolatilityLevel = "MEDIUM"
	VolHigh   VolatilityLevel = "HIGH"
)

// MarketState 每个tick重新计算的市场状态快照，创建后不再修改
type MarketState struct {
	Regime          Regime          `json:"regime"`
	Confidence      float64         `json:"confidence"` // [0,1]
	TrendScore      float64         `json:"trend_score"`
	VolatilityLevel VolatilityLevel `json:"volatility_level"`
	MomentumScore   float64         `json:"momentum_score"` // [-1,1]
	Timestamp       time.Time       `json:"timestamp"`
}

// SignalAction 策略产生的信号动作
type SignalAction string

const (
	SignalBuy  SignalAction = "BUY"
	SignalSell SignalAction = "SELL"
	SignalHold SignalAction = "HOLD"
)

// Signal 策略每个tick的输出，Reason 用于回答 "为什么在观望"
type Signal struct {
	Action SignalAction `json:"action"`
	Reason string       `json:"reason"`
}

// IntentAction 核心对外输出的动作类型
type IntentAction string

const (
	IntentOpen  IntentAction = "OPEN"
	IntentClose IntentAction = "CLOSE"
	IntentHold  IntentAction = "HOLD"
)

// Side 持仓方向
type Side string

const (
	Long  Side = "LONG"
	Short Side = "SHORT"
)

// Sign 返回方向对应的盈亏符号
func (s Side) Sign() float64 {
	if s == Short {
		return -1
	}
	return 1
}

// TradeIntent 每个tick发给执行层的决策，每tick最多一个
type TradeIntent struct {
	Action       IntentAction `json:"action"`
	Side         Side         `json:"side,omitempty"`
	Size         float64      `json:"size,omitempty"`       // 基础货币数量
	PriceHint    float64      `json:"price_hint,omitempty"` // 决策时的参考价格
	StrategyName string       `json:"strategy_name,omitempty"`
	Regime       Regime       `json:"regime,omitempty"`
	Reason       string       `json:"reason"`
}

// StrategyDescriptor 标识一个策略变体，启动时构建后不可变
type StrategyDescriptor struct {
	Name              string   `json:"name"`
	ApplicableRegimes []Regime `json:"applicable_regimes"`
	BaseRiskPct       float64  `json:"base_risk_pct"`
	MinConfidence     float64  `json:"min_confidence"`
	StopLossPct       float64  `json:"stop_loss_pct"`
	TakeProfitPct     float64  `json:"take_profit_pct"`
}

// Applicable 判断某个市场状态是否属于该策略的适用范围
func (d StrategyDescriptor) Applicable(r Regime) bool {
	for _, ar := range d.ApplicableRegimes {
		if ar == r {
			return true
		}
	}
	return false
}

// Position 当前持仓，全局最多一个
type Position struct {
	EntryPrice      float64   `json:"entry_price"`
	EntryTime       time.Time `json:"entry_time"`
	Quantity        float64   `json:"quantity"`
	Side            Side      `json:"side"`
	StrategyName    string    `json:"strategy_name"`   // 开仓策略，平仓前一直由它管理
	RegimeAtEntry   Regime    `json:"regime_at_entry"` // 开仓时的市场状态
	StopLossPrice   float64   `json:"stop_loss_price"` // 开仓时确定，持仓期间不变
	TakeProfitPrice float64   `json:"take_profit_price"`
}

// 平仓原因
const (
	ExitReasonStopLoss   = "stop_loss"
	ExitReasonTakeProfit = "take_profit"
	ExitReasonSignal     = "signal"
)

// Trade 记录一笔完成的交易，写入后不可变
type Trade struct {
	ID            string    `json:"id"`
	StrategyName  string    `json:"strategy_name"`
	RegimeAtEntry Regime    `json:"regime_at_entry"`
	Side          Side      `json:"side"`
	EntryTime     time.Time `json:"entry_time"`
	ExitTime      time.Time `json:"exit_time"`
	EntryPrice    float64   `json:"entry_price"`
	ExitPrice     float64   `json:"exit_price"`
	Quantity      float64   `json:"quantity"`
	Profit        float64   `json:"profit"`     // 已实现盈亏 (USDT)
	ProfitPct     float64   `json:"profit_pct"` // 相对开仓价的百分比
	ExitReason    string    `json:"exit_reason"`
}
