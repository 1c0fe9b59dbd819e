package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"regime-bot-go/internal/config"
	"regime-bot-go/internal/downloader"
	"regime-bot-go/internal/engine"
	"regime-bot-go/internal/feed"
	"regime-bot-go/internal/logger"
	"regime-bot-go/internal/models"
	"regime-bot-go/internal/persistence"
	"regime-bot-go/internal/reporter"

	"github.com/joho/godotenv"
)

// extractSymbolFromPath 从数据文件路径中提取交易对名称
// 例如: "data/BNBUSDT-2025-03-15-2025-06-15.csv" -> "BNBUSDT"
func extractSymbolFromPath(path string) string {
	name := strings.TrimSuffix(path, ".csv")
	parts := strings.Split(name, "/")
	fileName := parts[len(parts)-1]

	symbolParts := strings.Split(fileName, "-")
	if len(symbolParts) > 0 {
		return symbolParts[0]
	}
	return ""
}

func main() {
	// --- 命令行参数定义 ---
	configPath := flag.String("config", "config.json", "path to the config file")
	mode := flag.String("mode", "live", "running mode: live or backtest")
	dataPath := flag.String("data", "", "path to historical data file for backtesting")
	symbol := flag.String("symbol", "", "symbol to backtest (e.g., BTCUSDT)")
	startDate := flag.String("start", "", "start date for backtesting (YYYY-MM-DD)")
	endDate := flag.String("end", "", "end date for backtesting (YYYY-MM-DD)")
	flag.Parse()

	// --- 初始化日志 (提前) ---
	// 在加载.env或配置之前就需要记录日志，先用默认配置初始化一次
	logger.InitLogger(models.LogConfig{Level: "info", Output: "console"})

	// --- 加载 .env 文件 ---
	if err := godotenv.Load(); err != nil {
		logger.S().Info("未找到 .env 文件，将从系统环境变量中读取。")
	}

	// --- 加载 JSON 配置 ---
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.S().Fatalf("无法加载配置文件: %v", err)
	}

	// --- 使用文件中的配置重新初始化日志 ---
	logger.InitLogger(cfg.LogConfig)
	defer logger.S().Sync()

	// --- 配置校验，启动即失败 ---
	if err := config.Validate(cfg); err != nil {
		logger.S().Fatalf("配置校验失败: %v", err)
	}

	switch *mode {
	case "live":
		runLiveMode(cfg)
	case "backtest":
		finalDataPath, err := handleBacktestMode(cfg, *symbol, *startDate, *endDate, *dataPath)
		if err != nil {
			logger.S().Fatal(err)
		}
		runBacktestMode(cfg, finalDataPath)
	default:
		logger.S().Fatalf("未知的运行模式: %s。请选择 'live' 或 'backtest'。", *mode)
	}
}

// handleBacktestMode 处理回测模式的启动逻辑，包括数据下载。
// 成功后返回数据文件路径，失败则返回错误。
func handleBacktestMode(cfg *models.Config, symbol, startDate, endDate, dataPath string) (string, error) {
	shouldDownload := symbol != "" && startDate != "" && endDate != ""

	if shouldDownload {
		startTime, err1 := time.Parse("2006-01-02", startDate)
		endTime, err2 := time.Parse("2006-01-02", endDate)
		if err1 != nil || err2 != nil {
			return "", fmt.Errorf("日期格式错误，请使用 YYYY-MM-DD 格式。start: %v, end: %v", err1, err2)
		}

		dl := downloader.NewKlineDownloader()
		fileName := fmt.Sprintf("data/%s-%s-%s.csv", symbol, startDate, endDate)
		logger.S().Infof("开始下载 %s 从 %s 到 %s 的K线数据...", symbol, startDate, endDate)

		if err := dl.DownloadKlines(symbol, cfg.LiveInterval, fileName, startTime, endTime); err != nil {
			return "", fmt.Errorf("下载数据失败: %v", err)
		}
		return fileName, nil
	}

	if dataPath == "" {
		return "", fmt.Errorf("回测模式需要通过 --data 或 --symbol/start/end 参数指定数据源")
	}
	return dataPath, nil
}

// runBacktestMode 对历史数据运行与live完全相同的tick逻辑
func runBacktestMode(cfg *models.Config, dataPath string) {
	logger.S().Info("--- 启动回测模式 ---")

	// 从数据路径中提取 symbol，并用它来覆盖 config 中的值
	backtestSymbol := extractSymbolFromPath(dataPath)
	if backtestSymbol == "" {
		logger.S().Fatalf("无法从数据文件路径 %s 中提取交易对", dataPath)
	}
	cfg.Symbol = backtestSymbol

	bars, err := feed.LoadCSV(dataPath)
	if err != nil {
		logger.S().Fatalf("加载历史数据失败: %v", err)
	}
	logger.S().Infof("已加载 %d 根K线，开始回测...", len(bars))

	eng := engine.New(cfg, nil, logger.S())
	if err := eng.RunBacktest(bars); err != nil {
		logger.S().Fatalf("回测失败: %v", err)
	}
	logger.S().Info("回测结束。")

	state := eng.StrategyState()
	report := reporter.Generate(cfg.Symbol, dataPath, cfg.InitialEquity,
		eng.Trades(), eng.EquityCurve(), state.SwitchHistory, eng.OpenPosition(),
		bars[0].OpenTime, bars[len(bars)-1].OpenTime)
	report.Print()
}

// runLiveMode 运行实时模式：badger状态恢复 + REST回填 + ws K线流
func runLiveMode(cfg *models.Config) {
	logger.S().Info("--- 启动实时模式 ---")

	repo, err := persistence.NewBadgerRepository(cfg.DBPath)
	if err != nil {
		logger.S().Fatalf("初始化状态数据库失败: %v", err)
	}
	defer repo.Close()

	eng := engine.New(cfg, repo, logger.S())

	// 尝试恢复上次会话的状态
	if err := eng.LoadState(); err != nil {
		logger.S().Fatalf("恢复状态失败: %v", err)
	}

	liveFeed := feed.NewLiveFeed(cfg.Symbol, cfg.LiveInterval, cfg.LiveWSURL, logger.S())

	// 回填历史K线填充分析窗口；已恢复的窗口只会补充更新的K线
	backfillCtx, cancelBackfill := context.WithTimeout(context.Background(), 30*time.Second)
	history, err := liveFeed.Backfill(backfillCtx, cfg.WindowSize+cfg.BackfillPadding)
	cancelBackfill()
	if err != nil {
		logger.S().Fatalf("回填历史数据失败: %v", err)
	}
	eng.SeedWindow(history)
	logger.S().Infof("窗口回填完成，共 %d 根K线。", len(history))

	liveFeed.Start()

	// 等待中断信号以实现优雅退出
	ctx, cancel := context.WithCancel(context.Background())
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.S().Info("收到退出信号，正在停止...")
		cancel()
	}()

	if err := eng.RunLive(ctx, liveFeed.Bars()); err != nil {
		logger.S().Errorf("保存最终状态失败: %v", err)
	}
	liveFeed.Stop()

	// 会话结束时打印一份表现摘要
	state := eng.StrategyState()
	report := reporter.Generate(cfg.Symbol, "", cfg.InitialEquity,
		eng.Trades(), eng.EquityCurve(), state.SwitchHistory, eng.OpenPosition(),
		time.Time{}, time.Time{})
	report.Print()
	logger.S().Info("机器人已成功停止，状态已保存。")
}
