package iis

import (
	"strings"
	"testing"
)

// cmdRecorder 记录 runCmd / runCmdCombined 调用并按命令返回预设输出
type cmdRecorder struct {
	calls []string
	// respond 根据完整命令行返回输出和错误，为 nil 时返回空输出
	respond func(cmdline string) (string, error)
}

func (r *cmdRecorder) run(name string, args ...string) (string, error) {
	cmdline := name + " " + strings.Join(args, " ")
	r.calls = append(r.calls, cmdline)
	if r.respond == nil {
		return "", nil
	}
	return r.respond(cmdline)
}

// installRecorder 替换包级命令执行函数，测试结束后恢复
func installRecorder(t *testing.T, respond func(cmdline string) (string, error)) *cmdRecorder {
	t.Helper()
	rec := &cmdRecorder{respond: respond}
	origRun, origCombined := runCmd, runCmdCombined
	runCmd = rec.run
	runCmdCombined = rec.run
	t.Cleanup(func() {
		runCmd = origRun
		runCmdCombined = origCombined
	})
	return rec
}

// 测试用的 appcmd 输出
const testAppcmdSiteListXML = `<?xml version="1.0" encoding="UTF-8"?>
<appcmd>
<SITE SITE.NAME="Default Web Site" SITE.ID="1" bindings="http/*:80:,https/*:443:www.example.com" state="Started" />
<SITE SITE.NAME="Portal" SITE.ID="2" bindings="http/*:80:portal.example.com,https/*:443:portal.example.com" state="Started" />
<SITE SITE.NAME="Empty Site" SITE.ID="3" bindings="" state="Stopped" />
</appcmd>`

const testAppcmdEmptyXML = `<?xml version="1.0" encoding="UTF-8"?>
<appcmd>
</appcmd>`

const testGlobalRulesXML = `<?xml version="1.0" encoding="UTF-8"?>
<appcmd>
    <CONFIG CONFIG.SECTION="system.webServer/rewrite/globalRules" path="MACHINE/WEBROOT/APPHOST" overrideMode="Inherit" locked="false">
        <system.webServer-rewrite-globalRules useOriginalURLEncoding="true">
            <rule name="HTTP to HTTPS Redirect" enabled="true" stopProcessing="true">
                <match url="(.*)" />
                <conditions logicalGrouping="MatchAll" trackAllCaptures="false">
                    <add input="{HTTPS}" pattern="^OFF$" />
                </conditions>
                <action type="Redirect" url="https://{HTTP_HOST}{REQUEST_URI}" redirectType="Permanent" />
            </rule>
            <rule name="Block Bots" stopProcessing="false">
                <match url=".*" />
                <action type="AbortRequest" />
            </rule>
        </system.webServer-rewrite-globalRules>
    </CONFIG>
</appcmd>`

const testGlobalRulesEmptyXML = `<?xml version="1.0" encoding="UTF-8"?>
<appcmd>
    <CONFIG CONFIG.SECTION="system.webServer/rewrite/globalRules" path="MACHINE/WEBROOT/APPHOST" overrideMode="Inherit" locked="false">
        <system.webServer-rewrite-globalRules useOriginalURLEncoding="true">
        </system.webServer-rewrite-globalRules>
    </CONFIG>
</appcmd>`

// 测试用的 netsh 输出
const testNetshBindingOutput = `
SSL Certificate bindings:
-------------------------

    IP:port                      : 0.0.0.0:443
    Certificate Hash             : 1111111111111111111111111111111111111111
    Application ID               : {4dc3e181-e14b-4a21-b022-59fc669b0914}
    Certificate Store Name       : My

    Hostname:port                : www.example.com:443
    Certificate Hash             : ABC123DEF456789012345678901234567890ABCD
    Application ID               : {4dc3e181-e14b-4a21-b022-59fc669b0914}
    Certificate Store Name       : My

    Hostname:port                : api.example.com:443
    Certificate Hash             : DEF456789012345678901234567890ABCDEF1234
    Application ID               : {4dc3e181-e14b-4a21-b022-59fc669b0914}
    Certificate Store Name       : My
`

const testNetshChineseOutput = `
SSL 证书绑定:
-------------------------

    主机名:端口                  : www.example.com:443
    证书哈希                     : abc123def456789012345678901234567890abcd
    应用程序 ID                  : {4dc3e181-e14b-4a21-b022-59fc669b0914}
    证书存储名称                 : My
`

const testNetshSuccessOutput = `
SSL Certificate successfully added
`

// 测试常量
const (
	TestThumbprint      = "ABC123DEF456789012345678901234567890ABCD"
	TestThumbprintLower = "abc123def456789012345678901234567890abcd"
	TestDomain          = "www.example.com"
)
