package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"iisprov/util"
)

// DefaultTimeout 大文件下载超时
const DefaultTimeout = 30 * time.Minute

// ProgressCallback 进度回调函数
// downloaded: 已下载字节数
// total: 总字节数（-1 表示未知）
// speed: 下载速度（字节/秒）
type ProgressCallback func(downloaded, total int64, speed float64)

// HTTPDownloader HTTP 文件下载器
type HTTPDownloader struct {
	httpClient *http.Client
	userAgent  string
}

// NewHTTPDownloader 创建 HTTP 下载器
func NewHTTPDownloader() *HTTPDownloader {
	return &HTTPDownloader{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		userAgent:  "iisprov",
	}
}

// Download 下载文件到指定路径
// 先写入 destPath.tmp，完成后重命名，失败时不留下半截文件
func (d *HTTPDownloader) Download(ctx context.Context, downloadURL string, destPath string, onProgress ProgressCallback) error {
	if err := validateDownloadURL(downloadURL); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0700); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}

	written, downloadErr := d.DownloadToWriter(ctx, downloadURL, f, onProgress)
	closeErr := f.Close()

	if downloadErr != nil {
		os.Remove(tmpPath)
		return downloadErr
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("关闭临时文件失败: %w", closeErr)
	}
	if written == 0 {
		os.Remove(tmpPath)
		return fmt.Errorf("下载内容为空: %s", downloadURL)
	}

	// 删除已存在的目标文件（Windows 上 Rename 不会覆盖）
	os.Remove(destPath)

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("重命名文件失败: %w", err)
	}

	return nil
}

// DownloadToWriter 下载到 Writer，返回写入字节数
func (d *HTTPDownloader) DownloadToWriter(ctx context.Context, downloadURL string, w io.Writer, onProgress ProgressCallback) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return 0, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("下载请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("下载失败: HTTP %d", resp.StatusCode)
	}

	reader := &progressReader{
		reader:     resp.Body,
		total:      resp.ContentLength, // 可能为 -1
		onProgress: onProgress,
		startTime:  time.Now(),
	}

	n, err := io.Copy(w, reader)
	if err != nil {
		return n, fmt.Errorf("下载数据失败: %w", err)
	}
	if resp.ContentLength > 0 && n != resp.ContentLength {
		return n, fmt.Errorf("下载不完整: %d/%d 字节", n, resp.ContentLength)
	}

	return n, nil
}

// progressReader 带进度报告的 Reader
type progressReader struct {
	reader     io.Reader
	total      int64
	downloaded int64
	onProgress ProgressCallback
	startTime  time.Time
	lastReport time.Time
}

func (r *progressReader) Read(p []byte) (n int, err error) {
	n, err = r.reader.Read(p)
	if n > 0 {
		r.downloaded += int64(n)

		// 限制报告频率（每 100ms 报告一次）
		now := time.Now()
		if r.onProgress != nil && now.Sub(r.lastReport) >= 100*time.Millisecond {
			r.onProgress(r.downloaded, r.total, r.speed(now))
			r.lastReport = now
		}
	}

	// 下载完成时最后报告一次
	if err == io.EOF && r.onProgress != nil {
		r.onProgress(r.downloaded, r.total, r.speed(time.Now()))
	}

	return n, err
}

func (r *progressReader) speed(now time.Time) float64 {
	elapsed := now.Sub(r.startTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(r.downloaded) / elapsed
}

// LogProgress 返回按 10% 步进写日志的进度回调；总大小未知时每 5MB 记录一次
func LogProgress(name string) ProgressCallback {
	lastStep := int64(-1)
	return func(downloaded, total int64, speed float64) {
		var step int64
		if total > 0 {
			step = downloaded * 10 / total
		} else {
			step = downloaded / (5 << 20)
		}
		if step == lastStep {
			return
		}
		lastStep = step

		if total > 0 {
			util.Info("下载 %s: %d%% (%.1f KB/s)", name, downloaded*100/total, speed/1024)
		} else {
			util.Info("下载 %s: %.1f MB (%.1f KB/s)", name, float64(downloaded)/(1<<20), speed/1024)
		}
	}
}

// validateDownloadURL 验证下载 URL，必须是 HTTPS（localhost 除外）
func validateDownloadURL(downloadURL string) error {
	parsed, err := url.Parse(downloadURL)
	if err != nil {
		return fmt.Errorf("无效的下载地址: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	host := strings.ToLower(parsed.Hostname())

	if scheme == "https" {
		return nil
	}

	if scheme == "http" {
		if host == "localhost" || host == "127.0.0.1" {
			return nil
		}
		return fmt.Errorf("下载地址必须使用 HTTPS: %s", downloadURL)
	}

	return fmt.Errorf("不支持的协议: %s", scheme)
}
