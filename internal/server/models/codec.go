package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Round6 rounds v to six decimal places.
func Round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// EncodeVoiceprint renders v as a JSON array with six decimal places.
func EncodeVoiceprint(v []float64) string {
	var sb strings.Builder
	sb.Grow(len(v) * 10)
	sb.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(Round6(x), 'f', -1, 64))
	}
	sb.WriteByte(']')
	return sb.String()
}

func DecodeVoiceprint(s string) ([]float64, error) {
	var v []float64
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("decode voiceprint: %w", err)
	}
	return v, nil
}

func EncodeSecret(s []int) string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = strconv.Itoa(d)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func DecodeSecret(s string) ([]int, error) {
	var v []int
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("decode secret: %w", err)
	}
	return v, nil
}
