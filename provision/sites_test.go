package provision

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iisprov/cert"
	"iisprov/config"
	"iisprov/iis"
)

var fooSite = config.SiteConfig{Name: "Foo", PhysicalPath: `C:\inetpub\foo`, Domain: "foo.example.com"}

func matchOpts() SiteOptions {
	return SiteOptions{CertPolicy: cert.PolicyMatch}
}

func TestEnsureSite_EmptyStore(t *testing.T) {
	h := newFakeHost()
	p := h.provisioner()

	got := p.EnsureSite(fooSite, matchOpts())

	assert.Equal(t, SiteCreated, got.Outcome)
	assert.Equal(t, BindingNoCertificate, got.Binding)
	assert.ErrorIs(t, got.Err, ErrMissingPrerequisite)
	assert.False(t, got.HTTPS())

	assert.True(t, h.dirs[fooSite.PhysicalPath], "应创建物理目录")
	site, ok := iis.FindSite(h.sites, "Foo")
	require.True(t, ok)
	assert.True(t, site.HasBinding("http", "foo.example.com", 80))
	assert.False(t, site.HasBinding("https", "foo.example.com", 443))
	assert.False(t, h.called("BindCertificate"))
}

func TestEnsureSite_NoMatchingCertificate(t *testing.T) {
	h := newFakeHost()
	h.certs = []cert.CertInfo{testCert(thumbA, "other.example.com")}
	p := h.provisioner()

	got := p.EnsureSite(fooSite, matchOpts())
	assert.Equal(t, SiteCreated, got.Outcome)
	assert.Equal(t, BindingNoMatchingCertificate, got.Binding)
	assert.ErrorIs(t, got.Err, ErrMissingPrerequisite)
	assert.False(t, h.called("BindCertificate"))
}

func TestEnsureSite_FirstPolicyUsesAnyCertificate(t *testing.T) {
	h := newFakeHost()
	h.certs = []cert.CertInfo{testCert(thumbA, "other.example.com")}
	p := h.provisioner()

	got := p.EnsureSite(fooSite, SiteOptions{CertPolicy: cert.PolicyFirst})
	assert.Equal(t, BindingConfigured, got.Binding)
	assert.Equal(t, thumbA, got.Thumbprint)
}

func TestEnsureSite_ConfiguresHTTPS(t *testing.T) {
	h := newFakeHost()
	older := testCert(thumbA, "foo.example.com")
	older.NotAfter = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	newer := testCert(thumbB, "*.example.com", "*.example.com", "example.com")
	h.certs = []cert.CertInfo{older, newer}
	p := h.provisioner()

	got := p.EnsureSite(fooSite, matchOpts())
	assert.Equal(t, SiteCreated, got.Outcome)
	assert.Equal(t, BindingConfigured, got.Binding)
	assert.NoError(t, got.Err)
	assert.Equal(t, thumbB, got.Thumbprint, "应选择到期最晚的证书")
	assert.True(t, got.HTTPS())

	site, _ := iis.FindSite(h.sites, "Foo")
	assert.True(t, site.HasBinding("https", "foo.example.com", 443))
	assert.Equal(t, "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", h.ssl["foo.example.com:443"])
}

func TestEnsureSite_ExistingSiteUntouched(t *testing.T) {
	h := newFakeHost()
	h.sites = []iis.SiteInfo{{ID: 1, Name: "Foo"}}
	h.certs = []cert.CertInfo{testCert(thumbA, "foo.example.com")}
	p := h.provisioner()

	got := p.EnsureSite(fooSite, matchOpts())
	assert.Equal(t, SiteAlreadyExists, got.Outcome)
	assert.Equal(t, BindingNone, got.Binding)
	assert.Empty(t, h.mutations, "已存在的站点不应有任何修改")
	assert.False(t, h.called("MkdirAll"))
	assert.False(t, h.called("AddBinding"))
	assert.False(t, h.called("GetBindingForHost"))
}

func TestEnsureSite_ReconcileExisting(t *testing.T) {
	h := newFakeHost()
	// 只有 https 绑定，缺少 http 绑定和证书关联
	h.sites = []iis.SiteInfo{{ID: 1, Name: "Foo", Bindings: []iis.BindingInfo{
		{Protocol: "https", IP: "0.0.0.0", Port: 443, Host: "foo.example.com", HasSSL: true},
	}}}
	h.certs = []cert.CertInfo{testCert(thumbA, "foo.example.com")}
	p := h.provisioner()

	got := p.EnsureSite(fooSite, SiteOptions{CertPolicy: cert.PolicyMatch, ReconcileExisting: true})
	assert.Equal(t, SiteAlreadyExists, got.Outcome)
	assert.Equal(t, BindingConfigured, got.Binding)
	assert.False(t, h.called("MkdirAll"))
	assert.False(t, h.called("AddBinding Foo https"), "已有 https 绑定不应重复添加")

	site, _ := iis.FindSite(h.sites, "Foo")
	assert.True(t, site.HasBinding("http", "foo.example.com", 80))
	assert.Contains(t, h.ssl, "foo.example.com:443")
}

func TestEnsureSite_ReconcileKeepsExistingAssociation(t *testing.T) {
	h := newFakeHost()
	h.sites = []iis.SiteInfo{{ID: 1, Name: "Foo", Bindings: []iis.BindingInfo{
		{Protocol: "http", IP: "0.0.0.0", Port: 80, Host: "foo.example.com"},
	}}}
	h.ssl["foo.example.com:443"] = "cccccccccccccccccccccccccccccccccccccccc"
	// 存储中另有一张匹配的证书，已有关联仍应保留
	h.certs = []cert.CertInfo{
		testCert("CCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC", "legacy.example.com"),
		testCert(thumbA, "foo.example.com"),
	}
	p := h.provisioner()

	got := p.EnsureSite(fooSite, SiteOptions{CertPolicy: cert.PolicyMatch, ReconcileExisting: true})
	assert.Equal(t, BindingConfigured, got.Binding)
	assert.Equal(t, "cccccccccccccccccccccccccccccccccccccccc", got.Thumbprint)
	assert.False(t, h.called("BindCertificate"), "已有证书关联不应覆盖")
}

func TestEnsureSite_ReconcileReplacesAssociationMissingFromStore(t *testing.T) {
	h := newFakeHost()
	h.sites = []iis.SiteInfo{{ID: 1, Name: "Foo", Bindings: []iis.BindingInfo{
		{Protocol: "http", IP: "0.0.0.0", Port: 80, Host: "foo.example.com"},
		{Protocol: "https", IP: "0.0.0.0", Port: 443, Host: "foo.example.com", HasSSL: true},
	}}}
	h.ssl["foo.example.com:443"] = "dddddddddddddddddddddddddddddddddddddddd"
	h.certs = []cert.CertInfo{testCert(thumbA, "foo.example.com")}
	p := h.provisioner()

	got := p.EnsureSite(fooSite, SiteOptions{CertPolicy: cert.PolicyMatch, ReconcileExisting: true})
	assert.Equal(t, BindingConfigured, got.Binding)
	assert.Equal(t, thumbA, got.Thumbprint)
	assert.True(t, h.called("BindCertificate"))
	assert.Equal(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", h.ssl["foo.example.com:443"])
}

func TestEnsureSite_NewSiteIgnoresStaleAssociation(t *testing.T) {
	const stale = "deadbeefdeadbeefdeadbeefdeadbeefdeadbeef"

	t.Run("存储为空时仅配置 HTTP", func(t *testing.T) {
		h := newFakeHost()
		h.ssl["foo.example.com:443"] = stale
		p := h.provisioner()

		got := p.EnsureSite(fooSite, matchOpts())
		assert.Equal(t, SiteCreated, got.Outcome)
		assert.Equal(t, BindingNoCertificate, got.Binding)
		assert.Empty(t, got.Thumbprint)
		assert.False(t, got.HTTPS())

		site, ok := iis.FindSite(h.sites, "Foo")
		require.True(t, ok)
		assert.False(t, site.HasBinding("https", "foo.example.com", 443))
		assert.False(t, h.called("BindCertificate"))
	})

	t.Run("重新选择证书并覆盖关联", func(t *testing.T) {
		h := newFakeHost()
		h.ssl["foo.example.com:443"] = stale
		h.certs = []cert.CertInfo{testCert(thumbA, "other.example.com")}
		p := h.provisioner()

		got := p.EnsureSite(fooSite, SiteOptions{CertPolicy: cert.PolicyFirst})
		assert.Equal(t, BindingConfigured, got.Binding)
		assert.Equal(t, thumbA, got.Thumbprint)
		assert.True(t, h.called("BindCertificate"))
		assert.Equal(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", h.ssl["foo.example.com:443"])

		site, _ := iis.FindSite(h.sites, "Foo")
		assert.True(t, site.HasBinding("https", "foo.example.com", 443))
	})
}

func TestEnsureSite_ReconcileSkippedWhenComplete(t *testing.T) {
	h := newFakeHost()
	h.sites = []iis.SiteInfo{{ID: 1, Name: "Foo", Bindings: []iis.BindingInfo{
		{Protocol: "http", IP: "0.0.0.0", Port: 80, Host: "foo.example.com"},
		{Protocol: "https", IP: "0.0.0.0", Port: 443, Host: "foo.example.com", HasSSL: true},
	}}}
	h.ssl["foo.example.com:443"] = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	h.certs = []cert.CertInfo{testCert(thumbA, "foo.example.com")}
	p := h.provisioner()

	got := p.EnsureSite(fooSite, SiteOptions{CertPolicy: cert.PolicyMatch, ReconcileExisting: true})
	assert.Equal(t, BindingSkippedExisting, got.Binding)
	assert.True(t, got.HTTPS())
	assert.Empty(t, h.mutations)
}

func TestEnsureSite_ExistingDirectoryNotCreated(t *testing.T) {
	h := newFakeHost()
	h.dirs[fooSite.PhysicalPath] = true
	p := h.provisioner()

	got := p.EnsureSite(fooSite, matchOpts())
	assert.Equal(t, SiteCreated, got.Outcome)
	assert.False(t, h.called("MkdirAll"))
}

func TestEnsureSites_ContinuesAfterFailure(t *testing.T) {
	h := newFakeHost()
	p := h.provisioner()
	p.Web = &failingAddSiteWeb{fakeHost: h, failName: "Broken"}

	results := p.EnsureSites([]config.SiteConfig{
		{Name: "Broken", PhysicalPath: `C:\inetpub\broken`, Domain: "broken.example.com"},
		fooSite,
	}, matchOpts())

	require.Len(t, results, 2)
	assert.Equal(t, SiteFailed, results[0].Outcome)
	assert.Error(t, results[0].Err)
	assert.Equal(t, SiteCreated, results[1].Outcome)
}

type failingAddSiteWeb struct {
	*fakeHost
	failName string
}

func (f *failingAddSiteWeb) AddSite(name, physicalPath, domain string) error {
	if name == f.failName {
		return assert.AnError
	}
	return f.fakeHost.AddSite(name, physicalPath, domain)
}

func TestBindingOutcome_String(t *testing.T) {
	assert.Equal(t, "Configured", BindingConfigured.String())
	assert.Equal(t, "SkippedExisting", BindingSkippedExisting.String())
	assert.Equal(t, "NoCertificate", BindingNoCertificate.String())
	assert.Equal(t, "NoMatchingCertificate", BindingNoMatchingCertificate.String())
	assert.Equal(t, "Failed", BindingFailed.String())
	assert.Equal(t, "-", BindingNone.String())
	assert.Equal(t, "Created", SiteCreated.String())
	assert.Equal(t, "AlreadyExists", SiteAlreadyExists.String())
	assert.Equal(t, "Failed", SiteFailed.String())
}
