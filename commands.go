package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"iisprov/config"
	"iisprov/util"
)

var (
	taskName      string
	taskInterval  int
	encryptSecret string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "创建计划任务，定期以 SYSTEM 身份重新执行",
	RunE: func(cmd *cobra.Command, args []string) error {
		var taskArgs []string
		if cfgFile != "" {
			abs, err := filepath.Abs(cfgFile)
			if err != nil {
				return fmt.Errorf("获取配置文件路径失败: %w", err)
			}
			// 先校验配置，避免计划任务反复失败
			if _, err := config.Load(abs); err != nil {
				return err
			}
			taskArgs = append(taskArgs, "--config", abs)
		}

		if err := util.CreateTask(taskName, taskInterval, taskArgs...); err != nil {
			return err
		}
		util.Success("已创建计划任务 %s，每 %d 小时执行一次", taskName, taskInterval)
		return nil
	},
}

var unscheduleCmd = &cobra.Command{
	Use:   "unschedule",
	Short: "删除计划任务",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !util.IsTaskExists(taskName) {
			util.Info("计划任务 %s 不存在", taskName)
			return nil
		}
		if err := util.DeleteTask(taskName); err != nil {
			return err
		}
		util.Success("已删除计划任务 %s", taskName)
		return nil
	},
}

var encryptCmd = &cobra.Command{
	Use:   "encrypt",
	Short: "用 DPAPI 加密证书密码，输出可写入配置文件的 v1: 密文",
	Long: `用本机 DPAPI 加密证书密码，输出的密文只能在本机解密。
不指定 --secret 时从标准输入读取一行。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := encryptSecret
		if secret == "" {
			fmt.Fprint(os.Stderr, "密码: ")
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("读取密码失败: %w", err)
			}
			secret = strings.TrimRight(line, "\r\n")
		}
		if secret == "" {
			return fmt.Errorf("密码不能为空")
		}

		encrypted, err := config.EncryptSecret(secret)
		if err != nil {
			return err
		}
		fmt.Println(encrypted)
		return nil
	},
}

var printConfigCmd = &cobra.Command{
	Use:   "print-config",
	Short: "输出生效的期望状态（内置默认值合并配置文件）",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		data, err := cfg.Marshal()
		if err != nil {
			return fmt.Errorf("生成 YAML 失败: %w", err)
		}
		fmt.Print(string(data))
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{scheduleCmd, unscheduleCmd} {
		cmd.Flags().StringVar(&taskName, "name", util.DefaultTaskName, "计划任务名称")
	}
	scheduleCmd.Flags().IntVar(&taskInterval, "interval", 12, "执行间隔（小时，1-23）")
	encryptCmd.Flags().StringVar(&encryptSecret, "secret", "", "要加密的密码")
}
