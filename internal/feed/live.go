package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"regime-bot-go/internal/models"

	"github.com/adshao/go-binance/v2"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const defaultWSBaseURL = "wss://stream.binance.com:9443"

// LiveFeed 订阅币安K线流，只把已收盘的K线推送给引擎。
// 单生产者：Bars() 返回的channel只由内部的ws循环写入。
type LiveFeed struct {
	symbol   string
	interval string
	wsBase   string
	logger   *zap.SugaredLogger

	client *binance.Client
	bars   chan models.Bar

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewLiveFeed 创建一个实时K线源。wsBase 为空时使用币安生产网。
func NewLiveFeed(symbol, interval, wsBase string, logger *zap.SugaredLogger) *LiveFeed {
	if wsBase == "" {
		wsBase = defaultWSBaseURL
	}
	return &LiveFeed{
		symbol:   symbol,
		interval: interval,
		wsBase:   wsBase,
		logger:   logger,
		client:   binance.NewClient("", ""), // 公共行情接口不需要API Key
		bars:     make(chan models.Bar, 64),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Backfill 通过REST接口拉取最近 limit 根已收盘K线，用于启动时填充分析窗口。
func (f *LiveFeed) Backfill(ctx context.Context, limit int) ([]models.Bar, error) {
	klines, err := f.client.NewKlinesService().
		Symbol(f.symbol).
		Interval(f.interval).
		Limit(limit + 1). // 最后一根可能尚未收盘，多取一根再丢弃
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("回填K线数据失败: %v", err)
	}

	bars := make([]models.Bar, 0, len(klines))
	now := time.Now().UnixMilli()
	for _, k := range klines {
		if k.CloseTime >= now {
			continue // 未收盘
		}
		bar, err := barFromKline(k)
		if err != nil {
			f.logger.Warnf("无法解析回填K线，跳过: %v", err)
			continue
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// Start 启动ws守护循环。连接断开后等5秒重连，直到 Stop 被调用。
func (f *LiveFeed) Start() {
	go f.loop()
}

// Bars 返回已收盘K线的只读channel。Stop 后会被关闭。
func (f *LiveFeed) Bars() <-chan models.Bar {
	return f.bars
}

// Stop 终止ws循环并等待其退出。
func (f *LiveFeed) Stop() {
	f.stopOnce.Do(func() { close(f.stop) })
	<-f.done
}

func (f *LiveFeed) loop() {
	defer close(f.done)
	defer close(f.bars)

	wsURL := fmt.Sprintf("%s/ws/%s@kline_%s", f.wsBase, strings.ToLower(f.symbol), f.interval)
	for {
		select {
		case <-f.stop:
			f.logger.Info("K线流循环已停止。")
			return
		default:
			conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
			if err != nil {
				f.logger.Warnf("WebSocket连接失败: %v。5秒后重试...", err)
				if !f.sleep(5 * time.Second) {
					return
				}
				continue
			}

			f.logger.Infof("K线流连接成功: %s", wsURL)
			if err := f.readMessages(conn); err != nil {
				f.logger.Warnf("K线流处理时发生错误: %v", err)
			}
			conn.Close()

			select {
			case <-f.stop:
				return
			default:
				f.logger.Info("K线流连接已断开，准备重连...")
				if !f.sleep(5 * time.Second) {
					return
				}
			}
		}
	}
}

// readMessages 为一个已建立的连接处理消息，并实现心跳机制
func (f *LiveFeed) readMessages(conn *websocket.Conn) error {
	const (
		pongWait   = 60 * time.Second
		pingPeriod = (pongWait * 9) / 10 // Must be less than pongWait
	)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()
	pingStop := make(chan struct{})
	defer close(pingStop)

	go func() {
		for {
			select {
			case <-pingTicker.C:
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-pingStop:
				return
			case <-f.stop:
				return
			}
		}
	}()

	for {
		select {
		case <-f.stop:
			err := conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				return fmt.Errorf("发送WebSocket关闭帧失败: %v", err)
			}
			return nil
		default:
			_, message, err := conn.ReadMessage()
			if err != nil {
				return fmt.Errorf("读取消息失败: %v", err)
			}

			var event klineEvent
			if err := json.Unmarshal(message, &event); err != nil {
				f.logger.Warnf("解析K线消息失败: %v", err)
				continue
			}
			if !event.Kline.Closed {
				continue // 引擎只消费已收盘的K线
			}

			bar, err := event.Kline.toBar()
			if err != nil {
				f.logger.Warnf("转换K线失败: %v", err)
				continue
			}

			select {
			case f.bars <- bar:
			case <-f.stop:
				return nil
			}
		}
	}
}

// klineEvent 是币安 <symbol>@kline_<interval> 流的消息结构（只取需要的字段）
type klineEvent struct {
	Kline wsKline `json:"k"`
}

type wsKline struct {
	OpenTime int64  `json:"t"`
	Open     string `json:"o"`
	High     string `json:"h"`
	Low      string `json:"l"`
	Close    string `json:"c"`
	Volume   string `json:"v"`
	Closed   bool   `json:"x"` // 该K线是否已收盘
}

func (k wsKline) toBar() (models.Bar, error) {
	open, errO := strconv.ParseFloat(k.Open, 64)
	high, errH := strconv.ParseFloat(k.High, 64)
	low, errL := strconv.ParseFloat(k.Low, 64)
	closePrice, errC := strconv.ParseFloat(k.Close, 64)
	volume, errV := strconv.ParseFloat(k.Volume, 64)
	if errO != nil || errH != nil || errL != nil || errC != nil || errV != nil {
		return models.Bar{}, fmt.Errorf("K线字段解析失败: o=%v h=%v l=%v c=%v v=%v", errO, errH, errL, errC, errV)
	}
	return models.Bar{
		OpenTime: time.UnixMilli(k.OpenTime),
		Open:     open,
		High:     high,
		Low:      low,
		Close:    closePrice,
		Volume:   volume,
	}, nil
}

func barFromKline(k *binance.Kline) (models.Bar, error) {
	open, errO := strconv.ParseFloat(k.Open, 64)
	high, errH := strconv.ParseFloat(k.High, 64)
	low, errL := strconv.ParseFloat(k.Low, 64)
	closePrice, errC := strconv.ParseFloat(k.Close, 64)
	volume, errV := strconv.ParseFloat(k.Volume, 64)
	if errO != nil || errH != nil || errL != nil || errC != nil || errV != nil {
		return models.Bar{}, fmt.Errorf("K线字段解析失败: %v %v %v %v %v", errO, errH, errL, errC, errV)
	}
	return models.Bar{
		OpenTime: time.UnixMilli(k.OpenTime),
		Open:     open,
		High:     high,
		Low:      low,
		Close:    closePrice,
		Volume:   volume,
	}, nil
}

// sleep 等待d，期间如果收到停止信号返回false。
func (f *LiveFeed) sleep(d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-f.stop:
		return false
	}
}
