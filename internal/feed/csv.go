package feed

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"regime-bot-go/internal/models"
)

// LoadCSV 从本地CSV文件加载K线数据。
// 文件格式与 downloader 包写出的格式一致：
// open_time, open, high, low, close, volume, close_time, ...
func LoadCSV(path string) ([]models.Bar, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("无法打开历史数据文件: %v", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("无法读取所有CSV记录: %v", err)
	}
	if len(records) <= 1 { // 至少需要表头和一行数据
		return nil, fmt.Errorf("历史数据文件 %s 为空或只有表头", path)
	}

	// 移除表头
	records = records[1:]

	bars := make([]models.Bar, 0, len(records))
	for _, record := range records {
		if len(record) < 6 {
			return nil, fmt.Errorf("CSV记录列数不足: %v", record)
		}
		timestampMs, errT := strconv.ParseInt(record[0], 10, 64)
		open, errO := strconv.ParseFloat(record[1], 64)
		high, errH := strconv.ParseFloat(record[2], 64)
		low, errL := strconv.ParseFloat(record[3], 64)
		closePrice, errC := strconv.ParseFloat(record[4], 64)
		volume, errV := strconv.ParseFloat(record[5], 64)
		if errT != nil || errO != nil || errH != nil || errL != nil || errC != nil || errV != nil {
			return nil, fmt.Errorf("无法解析K线数据: %v", record)
		}
		bars = append(bars, models.Bar{
			OpenTime: time.UnixMilli(timestampMs),
			Open:     open,
			High:     high,
			Low:      low,
			Close:    closePrice,
			Volume:   volume,
		})
	}
	return bars, nil
}
