package config

import (
	"encoding/json"
	"fmt"
	"os"

	"regime-bot-go/internal/models"
)

// 指标库中最长的回看期 (50周期均线)，窗口不能小于它。
const MinWindowSize = 50

// LoadConfig 从指定路径加载JSON配置文件并解析到Config结构体中
func LoadConfig(path string) (*models.Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := Default()
	if err := json.NewDecoder(file).Decode(config); err != nil {
		return nil, err
	}

	return config, nil
}

// Default 返回一份带有全部默认阈值的配置，JSON文件按需覆盖。
func Default() *models.Config {
	return &models.Config{
		Symbol:        "BTCUSDT",
		DBPath:        "data/state",
		InitialEquity: 10000,
		WindowSize:    60,
		LiveInterval:  "1m",
		Detector: models.DetectorConfig{
			TrendBullPct:   5,
			TrendStrongPct: 15,
			VolLowPct:      0.02,
			VolHighPct:     0.06,
			MomentumWeights: models.MomentumWeights{
				RSI:  0.4,
				MACD: 0.3,
				ROC:  0.3,
			},
			HighVolDamping: 0.8,
		},
		Dispatcher: models.DispatcherConfig{
			MinTicksBetweenSwitches:   3,
			BreakoutMomentumThreshold: 0.3,
		},
		Strategies: models.StrategiesConfig{
			TrendFollowing:     models.StrategyConfig{MinConfidence: 0.6, BaseRiskPct: 0.04, StopLossPct: 0.05, TakeProfitPct: 0.10},
			RangeTrading:       models.StrategyConfig{MinConfidence: 0.5, BaseRiskPct: 0.025, StopLossPct: 0.03, TakeProfitPct: 0.04},
			VolatilityBreakout: models.StrategyConfig{MinConfidence: 0.55, BaseRiskPct: 0.03, StopLossPct: 0.04, TakeProfitPct: 0.08},
			MomentumScalping:   models.StrategyConfig{MinConfidence: 0.7, BaseRiskPct: 0.025, StopLossPct: 0.015, TakeProfitPct: 0.03},
			Defensive:          models.StrategyConfig{MinConfidence: 0.4, BaseRiskPct: 0.01, StopLossPct: 0.02, TakeProfitPct: 0.04},
			BreakoutK:          0.5,
		},
		LogConfig: models.LogConfig{Level: "info", Output: "console"},
	}
}

// Validate 在启动前检查所有阈值。配置错误必须让进程拒绝启动，
// 而不是悄悄地修正取值。
func Validate(cfg *models.Config) error {
	if cfg.Symbol == "" {
		return fmt.Errorf("invalid config: symbol must not be empty")
	}
	if cfg.InitialEquity <= 0 {
		return fmt.Errorf("invalid config: initial_equity must be positive, got %.2f", cfg.InitialEquity)
	}
	if cfg.WindowSize < MinWindowSize {
		return fmt.Errorf("invalid config: window_size %d is below the minimum indicator lookback %d", cfg.WindowSize, MinWindowSize)
	}

	d := cfg.Detector
	if d.TrendBullPct <= 0 || d.TrendStrongPct <= d.TrendBullPct {
		return fmt.Errorf("invalid config: trend thresholds must satisfy 0 < bull (%.2f) < strong (%.2f)", d.TrendBullPct, d.TrendStrongPct)
	}
	if d.VolLowPct <= 0 || d.VolHighPct <= d.VolLowPct {
		return fmt.Errorf("invalid config: volatility boundaries must satisfy 0 < low (%.4f) < high (%.4f)", d.VolLowPct, d.VolHighPct)
	}
	if w := d.MomentumWeights; w.RSI < 0 || w.MACD < 0 || w.ROC < 0 || w.RSI+w.MACD+w.ROC == 0 {
		return fmt.Errorf("invalid config: momentum weights must be non-negative with a positive sum")
	}
	if d.HighVolDamping <= 0 || d.HighVolDamping > 1 {
		return fmt.Errorf("invalid config: high_vol_damping must be in (0,1], got %.2f", d.HighVolDamping)
	}

	if cfg.Dispatcher.MinTicksBetweenSwitches < 0 {
		return fmt.Errorf("invalid config: min_ticks_between_switches must not be negative")
	}
	if t := cfg.Dispatcher.BreakoutMomentumThreshold; t < 0 || t > 1 {
		return fmt.Errorf("invalid config: breakout_momentum_threshold must be in [0,1], got %.2f", t)
	}

	if k := cfg.Strategies.BreakoutK; k < 0.2 || k > 1.0 {
		return fmt.Errorf("invalid config: breakout_k must be in [0.2,1.0], got %.2f", k)
	}
	for name, sc := range map[string]models.StrategyConfig{
		"trend_following":     cfg.Strategies.TrendFollowing,
		"range_trading":       cfg.Strategies.RangeTrading,
		"volatility_breakout": cfg.Strategies.VolatilityBreakout,
		"momentum_scalping":   cfg.Strategies.MomentumScalping,
		"defensive":           cfg.Strategies.Defensive,
	} {
		if err := validateStrategy(name, sc); err != nil {
			return err
		}
	}

	return nil
}

func validateStrategy(name string, sc models.StrategyConfig) error {
	if sc.MinConfidence < 0 || sc.MinConfidence > 1 {
		return fmt.Errorf("invalid config: %s.min_confidence must be in [0,1], got %.2f", name, sc.MinConfidence)
	}
	if sc.BaseRiskPct <= 0 || sc.BaseRiskPct > 1 {
		return fmt.Errorf("invalid config: %s.base_risk_pct must be in (0,1], got %.4f", name, sc.BaseRiskPct)
	}
	if sc.StopLossPct <= 0 || sc.StopLossPct >= 1 {
		return fmt.Errorf("invalid config: %s.stop_loss_pct must be in (0,1), got %.4f", name, sc.StopLossPct)
	}
	if sc.TakeProfitPct <= 0 {
		return fmt.Errorf("invalid config: %s.take_profit_pct must be positive, got %.4f", name, sc.TakeProfitPct)
	}
	return nil
}
