package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"iisprov/config"
	"iisprov/provision"
	"iisprov/ui"
	"iisprov/util"
)

var (
	version = "1.0.0"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var (
	cfgFile   string
	debugMode bool
	logPath   string
)

var rootCmd = &cobra.Command{
	Use:   "iisprov",
	Short: "IIS 主机初始化工具",
	Long: `按固定顺序把 IIS 主机配置到期望状态，可重复执行:

  1. 启用 IIS 相关的 Windows 功能
  2. 安装 URL Rewrite 模块
  3. 创建全局 HTTP→HTTPS 跳转规则
  4. 导入配置的证书文件
  5. 创建站点，有可用证书时配置 HTTPS 绑定

不带参数时使用内置的默认配置，--config 指定 YAML 文件覆盖。

证书默认按域名匹配 (cert_policy: match)，域名不匹配的证书不会绑定；
需要直接使用存储中第一张证书时，在配置文件中设置 cert_policy: first。`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		util.DebugMode = debugMode
	},
	RunE: runProvision,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "期望状态配置文件 (YAML)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "输出调试日志")
	rootCmd.Flags().StringVar(&logPath, "log-file", "", "日志文件 (默认: <程序目录>/iisprov/logs/provision.log)")

	rootCmd.SetVersionTemplate("iisprov v{{.Version}}\n")

	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(unscheduleCmd)
	rootCmd.AddCommand(encryptCmd)
	rootCmd.AddCommand(printConfigCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

// runProvision 执行完整流程
func runProvision(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	if logPath == "" {
		logPath = filepath.Join(config.GetLogDir(), "provision.log")
	}
	logFile, err := openLogFile(logPath)
	if err != nil {
		util.Warn("打开日志文件失败: %v", err)
	} else {
		util.SetOutput(logFile)
		defer logFile.Close()
	}

	if !util.IsAdmin() {
		util.Warn("当前不是管理员权限，dism/appcmd/netsh 操作可能失败")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	util.Info("========== iisprov v%s 开始执行 ==========", version)

	report, runErr := provision.DefaultProvisioner().Run(ctx, cfg)

	ui.PrintSummary(os.Stdout, report)
	if logFile != nil {
		fmt.Fprint(logFile, ui.RenderSummary(report, false))
	}

	if runErr != nil {
		return runErr
	}
	util.Info("========== 执行结束 ==========")
	return nil
}

// openLogFile 以追加方式打开日志文件，新文件写入 UTF-8 BOM（方便记事本查看）
func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("读取日志文件信息失败: %w", err)
	}
	if info.Size() == 0 {
		if _, err := f.Write(utf8BOM); err != nil {
			f.Close()
			return nil, fmt.Errorf("写入日志文件失败: %w", err)
		}
	}
	return f, nil
}
