package models

// The eight signal names every scan reports. These are the keys of
// Scan.Signals and the vocabulary of the score calculator.
const (
	SignalRobotsTxt       = "robotsTxt"
	SignalLLMsTxt         = "llmsTxt"
	SignalOpenAPIJSON     = "openapiJson"
	SignalAIPluginJSON    = "aiPluginJson"
	SignalSchemaOrg       = "schemaOrg"
	SignalSitemapXML      = "sitemapXml"
	SignalMetaDescription = "metaDescription"
	SignalSecurityTxt     = "securityTxt"
)

// SignalNames lists all signals in a stable order.
var SignalNames = []string{
	SignalRobotsTxt,
	SignalLLMsTxt,
	SignalOpenAPIJSON,
	SignalAIPluginJSON,
	SignalSchemaOrg,
	SignalSitemapXML,
	SignalMetaDescription,
	SignalSecurityTxt,
}

// The six discoverability categories scores are aggregated into.
const (
	CategoryDiscovery      = "discovery"
	CategoryAPIQuality     = "apiQuality"
	CategoryStructuredData = "structuredData"
	CategoryAuthOnboarding = "authOnboarding"
	CategoryErrorHandling  = "errorHandling"
	CategoryDocumentation  = "documentation"
)
