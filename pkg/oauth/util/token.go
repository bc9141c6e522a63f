package util

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	stateTokenMin = 100000
	stateTokenMax = 999999
)

// GenerateStateToken 生成六位数字 state 标识 (100000-999999)
// 使用 crypto/rand，保持与既有客户端一致的格式
func GenerateStateToken() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(stateTokenMax-stateTokenMin+1))
	if err != nil {
		return "", fmt.Errorf("failed to generate state token: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+stateTokenMin), nil
}
