package adapters

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/beevik/etree"
	"github.com/rs/zerolog/log"

	"choco-cli/internal/ports"
	"choco-cli/internal/types"
)

const xdtNamespace = "http://schemas.microsoft.com/XML-Document-Transform"

var xdtCallPattern = regexp.MustCompile(`^\s*(\w+)\s*(?:\(([^)]*)\))?\s*$`)

// ConfigTransformAdapter applies "*.install.xdt" documents to the xml file
// next to them. A copy of the file kept in the package backup is restored
// first so local edits survive upgrades.
type ConfigTransformAdapter struct {
	paths types.InstallPaths
}

func NewConfigTransformAdapter(paths types.InstallPaths) ConfigTransformAdapter {
	return ConfigTransformAdapter{paths: paths}
}

func (a ConfigTransformAdapter) Run(ctx context.Context, result *types.PackageResult) error {
	if strings.TrimSpace(result.InstallLocation) == "" {
		return nil
	}
	var transforms []string
	err := filepath.WalkDir(result.InstallLocation, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(strings.ToLower(d.Name()), types.TransformFileSuffix) {
			transforms = append(transforms, path)
		}
		return nil
	})
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to scan for config transforms").
			WithCause(err)
	}

	for _, transform := range transforms {
		target := transform[:len(transform)-len(types.TransformFileSuffix)]
		if _, err := os.Stat(target); err != nil {
			log.Ctx(ctx).Warn().Str("transform", transform).Msg("transform target does not exist, skipping")
			continue
		}
		a.restoreBackup(ctx, result, target)
		if err := ApplyTransformFile(target, transform); err != nil {
			return err
		}
		log.Ctx(ctx).Info().Str("file", target).Msg("applied config transform")
	}
	return nil
}

func (a ConfigTransformAdapter) restoreBackup(ctx context.Context, result *types.PackageResult, target string) {
	rel, err := filepath.Rel(result.InstallLocation, target)
	if err != nil {
		return
	}
	backup := filepath.Join(a.paths.BackupDir(result.InstallLocation), rel)
	data, err := os.ReadFile(backup)
	if err != nil {
		return
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("file", target).Msg("failed to restore backup configuration file")
		return
	}
	log.Ctx(ctx).Info().Str("file", target).Msg("restored backup configuration file")
}

// ApplyTransformFile rewrites target in place using the transform document.
func ApplyTransformFile(target, transform string) error {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(target); err != nil {
		return transformError("failed to read "+target, err)
	}
	xdt := etree.NewDocument()
	if err := xdt.ReadFromFile(transform); err != nil {
		return transformError("failed to read "+transform, err)
	}
	if err := ApplyTransform(doc, xdt); err != nil {
		return err
	}
	doc.Indent(2)
	if err := doc.WriteToFile(target); err != nil {
		return transformError("failed to write "+target, err)
	}
	return nil
}

// ApplyTransform applies the transform document to doc.
func ApplyTransform(doc, xdt *etree.Document) error {
	root, troot := doc.Root(), xdt.Root()
	if root == nil || troot == nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("transform and target need a root element")
	}
	if root.Tag != troot.Tag {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("transform root <" + troot.Tag + "> does not match target root <" + root.Tag + ">")
	}
	return applyChildren(root, troot)
}

func applyChildren(target, transform *etree.Element) error {
	for _, child := range transform.ChildElements() {
		if err := applyElement(target, child); err != nil {
			return err
		}
	}
	return nil
}

func applyElement(parent, t *etree.Element) error {
	matches := locate(parent, t)
	action, args := parseXdtCall(xdtAttr(t, "Transform"))

	switch action {
	case "":
		for _, match := range matches {
			if err := applyChildren(match, t); err != nil {
				return err
			}
		}
	case "Insert":
		parent.AddChild(cleanCopy(t))
	case "InsertIfMissing":
		if len(matches) == 0 {
			parent.AddChild(cleanCopy(t))
		}
	case "Replace":
		if len(matches) > 0 {
			index := matches[0].Index()
			parent.RemoveChild(matches[0])
			parent.InsertChildAt(index, cleanCopy(t))
		}
	case "Remove":
		if len(matches) > 0 {
			parent.RemoveChild(matches[0])
		}
	case "RemoveAll":
		for _, match := range matches {
			parent.RemoveChild(match)
		}
	case "SetAttributes":
		for _, match := range matches {
			for _, attr := range plainAttrs(t) {
				if len(args) == 0 || containsString(args, attr.Key) {
					match.CreateAttr(attr.Key, attr.Value)
				}
			}
			if err := applyChildren(match, t); err != nil {
				return err
			}
		}
	case "RemoveAttributes":
		for _, match := range matches {
			for _, key := range args {
				match.RemoveAttr(key)
			}
		}
	default:
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("unsupported transform '" + action + "' on <" + t.Tag + ">")
	}
	return nil
}

// locate finds the children of parent that t addresses, honouring a
// Match(...) locator.
func locate(parent, t *etree.Element) []*etree.Element {
	_, keys := parseXdtCall(xdtAttr(t, "Locator"))
	var out []*etree.Element
	for _, candidate := range parent.ChildElements() {
		if candidate.Tag != t.Tag {
			continue
		}
		matched := true
		for _, key := range keys {
			if candidate.SelectAttrValue(key, "") != t.SelectAttrValue(key, "") {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, candidate)
		}
	}
	return out
}

func parseXdtCall(value string) (string, []string) {
	match := xdtCallPattern.FindStringSubmatch(value)
	if match == nil {
		return strings.TrimSpace(value), nil
	}
	var args []string
	for _, arg := range strings.Split(match[2], ",") {
		if arg = strings.TrimSpace(arg); arg != "" {
			args = append(args, arg)
		}
	}
	return match[1], args
}

func xdtAttr(el *etree.Element, key string) string {
	for _, attr := range el.Attr {
		if attr.Key == key && attr.Space != "" {
			return attr.Value
		}
	}
	return ""
}

func isXdtAttr(attr etree.Attr) bool {
	if attr.Space == "xmlns" && attr.Value == xdtNamespace {
		return true
	}
	return attr.Space != "" && attr.Space != "xmlns" && (attr.Key == "Transform" || attr.Key == "Locator")
}

func plainAttrs(el *etree.Element) []etree.Attr {
	var out []etree.Attr
	for _, attr := range el.Attr {
		if !isXdtAttr(attr) {
			out = append(out, attr)
		}
	}
	return out
}

func cleanCopy(t *etree.Element) *etree.Element {
	clone := t.Copy()
	stripXdt(clone)
	return clone
}

func stripXdt(el *etree.Element) {
	el.Attr = plainAttrs(el)
	for _, child := range el.ChildElements() {
		stripXdt(child)
	}
}

func containsString(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

func transformError(msg string, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(msg).
		WithCause(err)
}

var _ ports.ConfigTransformPort = ConfigTransformAdapter{}
