package service

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"crypto-movers/internal/model"
)

// ErrInvalidWindow 窗口参数无法解析
var ErrInvalidWindow = errors.New("invalid window")

const (
	day   = 24 * time.Hour
	week  = 7 * day
	month = 30 * day

	// MaxKlineLimit 交易所单次 /klines 请求的最大条数，也决定了最长窗口
	MaxKlineLimit = 1500
)

func StringToFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

func StringToInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// 将 time.Duration 格式化为最简的周期字符串，如 "40m", "4h", "2d", "1w"
func FormatInterval(d time.Duration) string {
	if d >= week && d%week == 0 {
		return fmt.Sprintf("%dw", d/week)
	}

	if d >= day && d%day == 0 {
		return fmt.Sprintf("%dd", d/day)
	}

	// 优先处理小时 (h)
	if d >= time.Hour && d%time.Hour == 0 {
		return fmt.Sprintf("%dh", d/time.Hour)
	}

	// 接着处理分钟 (m)
	if d >= time.Minute && d%time.Minute == 0 {
		return fmt.Sprintf("%dm", d/time.Minute)
	}

	// 接着处理秒 (s)
	if d >= time.Second && d%time.Second == 0 {
		return fmt.Sprintf("%ds", d/time.Second)
	}

	return d.String()
}

// 将窗口字符串解析为 time.Duration
// 例如 "40m" -> 40*time.Minute, "2d" -> 48*time.Hour
func ParseIntervalDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWindow, s)
	}

	unit := s[len(s)-1:]
	valueStr := s[:len(s)-1]

	var unitDuration time.Duration
	switch unit {
	case "m":
		unitDuration = time.Minute
	case "h":
		unitDuration = time.Hour
	case "d":
		unitDuration = day
	case "w":
		unitDuration = week
	default:
		return 0, fmt.Errorf("%w: unsupported unit in %q (use m, h, d or w)", ErrInvalidWindow, s)
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%w: invalid value in %q", ErrInvalidWindow, s)
	}
	if value > math.MaxInt64/int64(unitDuration) {
		return 0, fmt.Errorf("%w: %q is too long", ErrInvalidWindow, s)
	}

	return time.Duration(value) * unitDuration, nil
}

// SamplingInterval 为窗口选择采样 K 线周期：窗口越长，K 线越粗
func SamplingInterval(d time.Duration) (string, time.Duration) {
	switch {
	case d >= month:
		return "1d", day
	case d >= week:
		return "4h", 4 * time.Hour
	case d >= day:
		return "1h", time.Hour
	case d >= time.Hour:
		return "5m", 5 * time.Minute
	default:
		return "1m", time.Minute
	}
}

// ParseWindow 解析窗口参数并计算采样方式
func ParseWindow(s string) (model.Window, error) {
	d, err := ParseIntervalDuration(s)
	if err != nil {
		return model.Window{}, err
	}

	interval, step := SamplingInterval(d)
	if d/step > MaxKlineLimit {
		return model.Window{}, fmt.Errorf("%w: %q needs more than %d %s candles (max %s)",
			ErrInvalidWindow, s, MaxKlineLimit, interval, FormatInterval(MaxKlineLimit*step))
	}
	limit := int(d / step)
	if limit < 1 {
		limit = 1
	}

	return model.Window{
		Label:    FormatInterval(d),
		Duration: d,
		Interval: interval,
		Limit:    limit,
	}, nil
}

// ParseWindows 解析多个窗口，拒绝重复 (按规范化后的长度判断，"60m" 与 "1h" 视为重复)
func ParseWindows(args []string) ([]model.Window, error) {
	windows := make([]model.Window, 0, len(args))
	seen := make(map[time.Duration]string, len(args))
	for _, arg := range args {
		w, err := ParseWindow(arg)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[w.Duration]; ok {
			return nil, fmt.Errorf("%w: %q duplicates %q", ErrInvalidWindow, arg, prev)
		}
		seen[w.Duration] = arg
		windows = append(windows, w)
	}
	return windows, nil
}

// ParsePercentage 解析 "2%" 或 "2" 形式的百分比
func ParsePercentage(s string) (float64, error) {
	v, err := StringToFloat(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if err != nil {
		return 0, fmt.Errorf("invalid percentage %q: %w", s, err)
	}
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid percentage %q: must be a non-negative number", s)
	}
	return v, nil
}
