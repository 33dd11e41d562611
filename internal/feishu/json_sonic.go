//go:build sonic

package feishu

import "github.com/bytedance/sonic"

// for imroc/req
var jsonMarshal = sonic.Marshal
var jsonUnmarshal = sonic.Unmarshal
