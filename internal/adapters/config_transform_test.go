package adapters

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"choco-cli/internal/types"
)

const targetConfig = `<configuration>
  <appSettings>
    <add key="mode" value="dev" />
    <add key="legacy" value="1" />
  </appSettings>
  <connectionStrings>
    <add name="main" connectionString="old" />
  </connectionStrings>
</configuration>`

const installTransform = `<configuration xmlns:xdt="http://schemas.microsoft.com/XML-Document-Transform">
  <appSettings>
    <add key="mode" value="prod" xdt:Transform="SetAttributes(value)" xdt:Locator="Match(key)" />
    <add key="legacy" xdt:Transform="Remove" xdt:Locator="Match(key)" />
    <add key="port" value="8080" xdt:Transform="InsertIfMissing" xdt:Locator="Match(key)" />
  </appSettings>
  <connectionStrings xdt:Transform="Replace">
    <add name="main" connectionString="new" />
  </connectionStrings>
</configuration>`

func readDoc(t *testing.T, content string) *etree.Document {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(content))
	return doc
}

func TestApplyTransform(t *testing.T) {
	doc := readDoc(t, targetConfig)
	require.NoError(t, ApplyTransform(doc, readDoc(t, installTransform)))

	mode := doc.FindElement("//appSettings/add[@key='mode']")
	require.NotNil(t, mode)
	assert.Equal(t, "prod", mode.SelectAttrValue("value", ""))
	assert.Nil(t, doc.FindElement("//appSettings/add[@key='legacy']"))

	port := doc.FindElement("//appSettings/add[@key='port']")
	require.NotNil(t, port)
	assert.Equal(t, "8080", port.SelectAttrValue("value", ""))
	for _, attr := range port.Attr {
		assert.Empty(t, attr.Space, "transform attributes must not leak into the target")
	}

	conn := doc.FindElement("//connectionStrings/add[@name='main']")
	require.NotNil(t, conn)
	assert.Equal(t, "new", conn.SelectAttrValue("connectionString", ""))
	assert.Len(t, doc.FindElements("//connectionStrings"), 1)
}

func TestApplyTransform_InsertIfMissingIsIdempotent(t *testing.T) {
	doc := readDoc(t, targetConfig)
	xdt := `<configuration xmlns:xdt="http://schemas.microsoft.com/XML-Document-Transform">
  <appSettings>
    <add key="mode" value="other" xdt:Transform="InsertIfMissing" xdt:Locator="Match(key)" />
  </appSettings>
</configuration>`
	require.NoError(t, ApplyTransform(doc, readDoc(t, xdt)))
	assert.Len(t, doc.FindElements("//appSettings/add[@key='mode']"), 1)
	assert.Equal(t, "dev", doc.FindElement("//appSettings/add[@key='mode']").SelectAttrValue("value", ""))
}

func TestApplyTransform_Errors(t *testing.T) {
	err := ApplyTransform(readDoc(t, targetConfig), readDoc(t, `<other />`))
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))

	xdt := `<configuration xmlns:xdt="http://schemas.microsoft.com/XML-Document-Transform">
  <appSettings xdt:Transform="XSLT(foo)" />
</configuration>`
	err = ApplyTransform(readDoc(t, targetConfig), readDoc(t, xdt))
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestConfigTransformAdapter_RestoresBackupBeforeApplying(t *testing.T) {
	paths := types.NewInstallPaths(t.TempDir())
	dir := paths.PackageDir("app")
	target := filepath.Join(dir, "tools", "app.config")
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
	require.NoError(t, os.WriteFile(target, []byte(targetConfig), 0o644))
	require.NoError(t, os.WriteFile(target+types.TransformFileSuffix, []byte(installTransform), 0o644))

	backup := filepath.Join(paths.BackupDir(dir), "tools", "app.config")
	require.NoError(t, os.MkdirAll(filepath.Dir(backup), 0o755))
	edited := `<configuration><appSettings><add key="mode" value="custom" /><add key="port" value="9000" /></appSettings></configuration>`
	require.NoError(t, os.WriteFile(backup, []byte(edited), 0o644))

	adapter := NewConfigTransformAdapter(paths)
	require.NoError(t, adapter.Run(context.Background(), types.NewPackageResult("app", "1.0", dir)))

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromFile(target))
	assert.Equal(t, "prod", doc.FindElement("//appSettings/add[@key='mode']").SelectAttrValue("value", ""))
	assert.Equal(t, "9000", doc.FindElement("//appSettings/add[@key='port']").SelectAttrValue("value", ""))
}

func TestConfigTransformAdapter_MissingTargetSkipped(t *testing.T) {
	paths := types.NewInstallPaths(t.TempDir())
	dir := paths.PackageDir("app")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gone.config"+types.TransformFileSuffix), []byte(installTransform), 0o644))

	adapter := NewConfigTransformAdapter(paths)
	require.NoError(t, adapter.Run(context.Background(), types.NewPackageResult("app", "1.0", dir)))
	assert.NoFileExists(t, filepath.Join(dir, "gone.config"))
}
