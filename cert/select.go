package cert

import (
	"errors"
	"time"
)

// 证书选择策略
const (
	PolicyMatch = "match" // 域名匹配、未过期、带私钥，取到期时间最晚的一张
	PolicyFirst = "first" // 取存储枚举到的第一张
)

var (
	// ErrStoreEmpty 证书存储中没有任何证书
	ErrStoreEmpty = errors.New("证书存储为空")
	// ErrNoMatch 存储中有证书，但没有满足条件的
	ErrNoMatch = errors.New("没有匹配域名的可用证书")
)

// SelectCertificate 按策略为域名挑选证书
// 存储为空返回 ErrStoreEmpty；按 match 策略找不到返回 ErrNoMatch
func SelectCertificate(certs []CertInfo, domain, policy string, now time.Time) (*CertInfo, error) {
	if len(certs) == 0 {
		return nil, ErrStoreEmpty
	}

	if policy == PolicyFirst {
		c := certs[0]
		return &c, nil
	}

	var best *CertInfo
	for i := range certs {
		c := &certs[i]
		if !c.HasPrivKey || c.IsExpired(now) || !c.MatchesDomain(domain) {
			continue
		}
		if best == nil || c.NotAfter.After(best.NotAfter) {
			best = c
		}
	}

	if best == nil {
		return nil, ErrNoMatch
	}
	selected := *best
	return &selected, nil
}
