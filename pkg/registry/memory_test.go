package registry_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/answerline/pkg/registry"
	"github.com/papercomputeco/answerline/pkg/tools"
)

var _ = Describe("MemoryRegistry", func() {
	var (
		ctx context.Context
		reg *registry.MemoryRegistry
	)

	BeforeEach(func() {
		ctx = context.Background()
		reg = registry.NewMemoryRegistry()
	})

	addProvider := func(name string, enabled bool) *registry.ModelProvider {
		p := &registry.ModelProvider{Name: name, BaseURL: "https://api.example.com", Enabled: enabled}
		Expect(reg.CreateProvider(ctx, p)).To(Succeed())
		return p
	}

	addEndpoint := func(name string, enabled bool) *tools.Endpoint {
		ep := &tools.Endpoint{Name: name, Target: "mock://" + name, Enabled: enabled}
		Expect(reg.CreateToolEndpoint(ctx, ep)).To(Succeed())
		return ep
	}

	Describe("providers", func() {
		It("assigns an id on create", func() {
			p := addProvider("gemini", true)
			Expect(p.ID).NotTo(BeEmpty())
		})

		It("rejects a duplicate provider name", func() {
			addProvider("gemini", true)
			err := reg.CreateProvider(ctx, &registry.ModelProvider{Name: "gemini"})
			Expect(err).To(MatchError(registry.ErrDuplicateName))
		})

		It("rejects a nil provider", func() {
			Expect(reg.CreateProvider(ctx, nil)).To(HaveOccurred())
		})

		It("round-trips through get", func() {
			p := addProvider("deepseek", true)
			got, err := reg.GetProvider(ctx, p.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Name).To(Equal("deepseek"))
			Expect(got.BaseURL).To(Equal("https://api.example.com"))
			Expect(got.Enabled).To(BeTrue())
		})

		It("returns NotFoundError for an unknown id", func() {
			_, err := reg.GetProvider(ctx, "nope")
			Expect(err).To(MatchError(registry.NotFoundError{Kind: "provider", ID: "nope"}))
		})

		It("updates an existing provider", func() {
			p := addProvider("gemini", true)
			p.Enabled = false
			Expect(reg.UpdateProvider(ctx, p)).To(Succeed())

			got, err := reg.GetProvider(ctx, p.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Enabled).To(BeFalse())
		})

		It("refuses to update an unknown provider", func() {
			err := reg.UpdateProvider(ctx, &registry.ModelProvider{ID: "ghost"})
			var nf registry.NotFoundError
			Expect(errors.As(err, &nf)).To(BeTrue())
			Expect(nf.Kind).To(Equal("provider"))
		})

		It("lists providers sorted by name", func() {
			addProvider("zephyr", true)
			addProvider("acme", true)

			list, err := reg.ListProviders(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(2))
			Expect(list[0].Name).To(Equal("acme"))
			Expect(list[1].Name).To(Equal("zephyr"))
		})

		It("stores a copy, not the caller's pointer", func() {
			p := addProvider("gemini", true)
			p.Name = "mutated"

			got, err := reg.GetProvider(ctx, p.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Name).To(Equal("gemini"))
		})
	})

	Describe("RefreshModels", func() {
		It("discovers the gemini catalog from the provider name", func() {
			p := addProvider("Google Gemini", true)
			models, err := reg.RefreshModels(ctx, p.ID, nil)
			Expect(err).NotTo(HaveOccurred())

			names := make([]string, 0, len(models))
			for _, m := range models {
				names = append(names, m.Name)
			}
			Expect(names).To(ConsistOf("gemini-2.0-flash", "gemini-2.0-pro", "text-embedding-004"))
		})

		It("marks discovered model types and capabilities", func() {
			p := addProvider("gemini", true)
			models, err := reg.RefreshModels(ctx, p.ID, nil)
			Expect(err).NotTo(HaveOccurred())

			byName := make(map[string]*registry.Model)
			for _, m := range models {
				byName[m.Name] = m
			}
			Expect(byName["text-embedding-004"].Type).To(Equal("embedding"))
			Expect(byName["gemini-2.0-flash"].Type).To(Equal("llm"))
			Expect(byName["gemini-2.0-flash"].HasCapability(registry.CapReasoningBudget)).To(BeTrue())
			Expect(byName["gemini-2.0-flash"].HasCapability(registry.CapReasoningEffort)).To(BeFalse())
		})

		It("discovers the deepseek catalog", func() {
			p := addProvider("deepseek", true)
			models, err := reg.RefreshModels(ctx, p.ID, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(models).To(HaveLen(2))
			Expect(models[0].HasCapability(registry.CapReasoningEffort)).To(BeTrue())
		})

		It("appends manually supplied names as llm models", func() {
			p := addProvider("deepseek", true)
			models, err := reg.RefreshModels(ctx, p.ID, []string{"deepseek-coder"})
			Expect(err).NotTo(HaveOccurred())
			Expect(models).To(HaveLen(3))
			Expect(models[2].Name).To(Equal("deepseek-coder"))
			Expect(models[2].Type).To(Equal("llm"))
		})

		It("falls back to a single custom-model for an unknown family", func() {
			p := addProvider("acme-llm", true)
			models, err := reg.RefreshModels(ctx, p.ID, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(models).To(HaveLen(1))
			Expect(models[0].Name).To(Equal("custom-model"))
		})

		It("replaces the provider's previous catalog", func() {
			p := addProvider("gemini", true)
			_, err := reg.RefreshModels(ctx, p.ID, nil)
			Expect(err).NotTo(HaveOccurred())
			_, err = reg.RefreshModels(ctx, p.ID, nil)
			Expect(err).NotTo(HaveOccurred())

			list, err := reg.ListModels(ctx, p.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(3))
		})

		It("leaves other providers' catalogs alone", func() {
			g := addProvider("gemini", true)
			d := addProvider("deepseek", true)
			_, err := reg.RefreshModels(ctx, g.ID, nil)
			Expect(err).NotTo(HaveOccurred())
			_, err = reg.RefreshModels(ctx, d.ID, nil)
			Expect(err).NotTo(HaveOccurred())

			all, err := reg.ListModels(ctx, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(5))

			geminiOnly, err := reg.ListModels(ctx, g.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(geminiOnly).To(HaveLen(3))
		})

		It("returns NotFoundError for an unknown provider", func() {
			_, err := reg.RefreshModels(ctx, "ghost", nil)
			Expect(err).To(MatchError(registry.NotFoundError{Kind: "provider", ID: "ghost"}))
		})
	})

	Describe("profiles", func() {
		var modelID string

		BeforeEach(func() {
			p := addProvider("gemini", true)
			models, err := reg.RefreshModels(ctx, p.ID, nil)
			Expect(err).NotTo(HaveOccurred())
			modelID = models[0].ID
		})

		It("clips params against the model's provider family on create", func() {
			profile := &registry.RuntimeProfile{
				Name:    "fast",
				ModelID: modelID,
				Params: map[string]float64{
					"temperature":      0.4,
					"reasoning_effort": 2,
				},
			}
			Expect(reg.CreateProfile(ctx, profile)).To(Succeed())

			got, err := reg.GetProfile(ctx, profile.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Params).To(Equal(map[string]float64{"temperature": 0.4}))
		})

		It("leaves params alone when the profile's model is unknown", func() {
			profile := &registry.RuntimeProfile{
				Name:    "orphan",
				ModelID: "ghost",
				Params:  map[string]float64{"anything": 1},
			}
			Expect(reg.CreateProfile(ctx, profile)).To(Succeed())

			got, err := reg.GetProfile(ctx, profile.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Params).To(HaveKey("anything"))
		})

		It("rejects a duplicate profile name", func() {
			Expect(reg.CreateProfile(ctx, &registry.RuntimeProfile{Name: "fast", ModelID: modelID})).To(Succeed())
			err := reg.CreateProfile(ctx, &registry.RuntimeProfile{Name: "fast", ModelID: modelID})
			Expect(err).To(MatchError(registry.ErrDuplicateName))
		})

		It("keeps at most one default profile", func() {
			first := &registry.RuntimeProfile{Name: "first", ModelID: modelID, IsDefault: true}
			second := &registry.RuntimeProfile{Name: "second", ModelID: modelID, IsDefault: true}
			Expect(reg.CreateProfile(ctx, first)).To(Succeed())
			Expect(reg.CreateProfile(ctx, second)).To(Succeed())

			list, err := reg.ListProfiles(ctx)
			Expect(err).NotTo(HaveOccurred())

			defaults := 0
			for _, p := range list {
				if p.IsDefault {
					defaults++
					Expect(p.Name).To(Equal("second"))
				}
			}
			Expect(defaults).To(Equal(1))
		})

		It("moves the default on update", func() {
			first := &registry.RuntimeProfile{Name: "first", ModelID: modelID, IsDefault: true}
			second := &registry.RuntimeProfile{Name: "second", ModelID: modelID}
			Expect(reg.CreateProfile(ctx, first)).To(Succeed())
			Expect(reg.CreateProfile(ctx, second)).To(Succeed())

			second.IsDefault = true
			Expect(reg.UpdateProfile(ctx, second)).To(Succeed())

			got, err := reg.GetProfile(ctx, first.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.IsDefault).To(BeFalse())
		})

		It("refuses an update that steals another profile's name", func() {
			first := &registry.RuntimeProfile{Name: "first", ModelID: modelID}
			second := &registry.RuntimeProfile{Name: "second", ModelID: modelID}
			Expect(reg.CreateProfile(ctx, first)).To(Succeed())
			Expect(reg.CreateProfile(ctx, second)).To(Succeed())

			second.Name = "first"
			Expect(reg.UpdateProfile(ctx, second)).To(MatchError(registry.ErrDuplicateName))
		})

		It("allows an update that keeps the profile's own name", func() {
			profile := &registry.RuntimeProfile{Name: "fast", ModelID: modelID}
			Expect(reg.CreateProfile(ctx, profile)).To(Succeed())
			profile.ReasoningBudget = 2048
			Expect(reg.UpdateProfile(ctx, profile)).To(Succeed())
		})
	})

	Describe("ResolveProfile", func() {
		var modelID string
		var defaultProfile, otherProfile *registry.RuntimeProfile

		BeforeEach(func() {
			p := addProvider("gemini", true)
			models, err := reg.RefreshModels(ctx, p.ID, nil)
			Expect(err).NotTo(HaveOccurred())
			modelID = models[0].ID

			defaultProfile = &registry.RuntimeProfile{Name: "default", ModelID: modelID, IsDefault: true}
			otherProfile = &registry.RuntimeProfile{Name: "other", ModelID: modelID}
			Expect(reg.CreateProfile(ctx, defaultProfile)).To(Succeed())
			Expect(reg.CreateProfile(ctx, otherProfile)).To(Succeed())
		})

		It("prefers an explicit id over everything", func() {
			got, err := reg.ResolveProfile(ctx, otherProfile.ID, defaultProfile.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(otherProfile.ID))
		})

		It("falls back to the conversation's bound profile", func() {
			got, err := reg.ResolveProfile(ctx, "", otherProfile.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(otherProfile.ID))
		})

		It("falls back to the default profile", func() {
			got, err := reg.ResolveProfile(ctx, "", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(defaultProfile.ID))
		})

		It("surfaces NotFoundError for an unknown explicit id", func() {
			_, err := reg.ResolveProfile(ctx, "ghost", "")
			Expect(err).To(MatchError(registry.NotFoundError{Kind: "profile", ID: "ghost"}))
		})

		It("reports profile not found when nothing resolves", func() {
			empty := registry.NewMemoryRegistry()
			_, err := empty.ResolveProfile(ctx, "", "")
			var nf registry.NotFoundError
			Expect(errors.As(err, &nf)).To(BeTrue())
			Expect(nf.Kind).To(Equal("profile"))
		})
	})

	Describe("ResolveModelAndProvider", func() {
		It("resolves both along the profile's chain", func() {
			p := addProvider("deepseek", true)
			models, err := reg.RefreshModels(ctx, p.ID, nil)
			Expect(err).NotTo(HaveOccurred())

			model, provider, err := reg.ResolveModelAndProvider(ctx, &registry.RuntimeProfile{ModelID: models[0].ID})
			Expect(err).NotTo(HaveOccurred())
			Expect(model.ID).To(Equal(models[0].ID))
			Expect(provider.ID).To(Equal(p.ID))
		})

		It("returns model NotFoundError for a dangling model id", func() {
			_, _, err := reg.ResolveModelAndProvider(ctx, &registry.RuntimeProfile{ModelID: "ghost"})
			var nf registry.NotFoundError
			Expect(errors.As(err, &nf)).To(BeTrue())
			Expect(nf.Kind).To(Equal("model"))
		})

		It("returns ErrProviderDisabled for a switched-off provider", func() {
			p := addProvider("deepseek", true)
			models, err := reg.RefreshModels(ctx, p.ID, nil)
			Expect(err).NotTo(HaveOccurred())

			p.Enabled = false
			Expect(reg.UpdateProvider(ctx, p)).To(Succeed())

			_, _, err = reg.ResolveModelAndProvider(ctx, &registry.RuntimeProfile{ModelID: models[0].ID})
			Expect(err).To(MatchError(registry.ErrProviderDisabled))
		})
	})

	Describe("tool endpoints", func() {
		It("assigns an id and rejects duplicate names", func() {
			ep := addEndpoint("web-search", true)
			Expect(ep.ID).NotTo(BeEmpty())

			err := reg.CreateToolEndpoint(ctx, &tools.Endpoint{Name: "web-search"})
			Expect(err).To(MatchError(registry.ErrDuplicateName))
		})

		It("round-trips through get and lists by name order", func() {
			addEndpoint("web-search", true)
			addEndpoint("calculator", true)

			list, err := reg.ListToolEndpoints(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(2))
			Expect(list[0].Name).To(Equal("calculator"))
		})

		It("returns NotFoundError for unknown endpoint operations", func() {
			_, err := reg.GetToolEndpoint(ctx, "ghost")
			Expect(err).To(MatchError(registry.NotFoundError{Kind: "endpoint", ID: "ghost"}))
			Expect(reg.DeleteToolEndpoint(ctx, "ghost")).To(MatchError(registry.NotFoundError{Kind: "endpoint", ID: "ghost"}))
			Expect(reg.UpdateToolEndpoint(ctx, &tools.Endpoint{ID: "ghost"})).To(MatchError(registry.NotFoundError{Kind: "endpoint", ID: "ghost"}))
		})

		It("deletes the endpoint's agent bindings with it", func() {
			a := addEndpoint("web-search", true)
			b := addEndpoint("calculator", true)
			Expect(reg.ReplaceAgentBindings(ctx, "qa", []string{a.ID, b.ID})).To(Succeed())

			Expect(reg.DeleteToolEndpoint(ctx, a.ID)).To(Succeed())

			ids, err := reg.AgentBindingToolIDs(ctx, "qa")
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(Equal([]string{b.ID}))
		})
	})

	Describe("EnabledEndpoint", func() {
		It("resolves an enabled endpoint", func() {
			ep := addEndpoint("web-search", true)
			got, ok := reg.EnabledEndpoint(ctx, ep.ID)
			Expect(ok).To(BeTrue())
			Expect(got.Name).To(Equal("web-search"))
		})

		It("refuses disabled and unknown endpoints", func() {
			ep := addEndpoint("web-search", false)
			_, ok := reg.EnabledEndpoint(ctx, ep.ID)
			Expect(ok).To(BeFalse())
			_, ok = reg.EnabledEndpoint(ctx, "ghost")
			Expect(ok).To(BeFalse())
		})
	})

	Describe("agent bindings", func() {
		It("replaces the list in priority order", func() {
			a := addEndpoint("web-search", true)
			b := addEndpoint("calculator", true)

			Expect(reg.ReplaceAgentBindings(ctx, "qa", []string{b.ID, a.ID})).To(Succeed())

			ids, err := reg.AgentBindingToolIDs(ctx, "qa")
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(Equal([]string{b.ID, a.ID}))
		})

		It("rejects unknown endpoint ids without partial writes", func() {
			a := addEndpoint("web-search", true)
			Expect(reg.ReplaceAgentBindings(ctx, "qa", []string{a.ID})).To(Succeed())

			err := reg.ReplaceAgentBindings(ctx, "qa", []string{a.ID, "ghost"})
			var nf registry.NotFoundError
			Expect(errors.As(err, &nf)).To(BeTrue())
			Expect(nf.Kind).To(Equal("endpoint"))

			ids, err := reg.AgentBindingToolIDs(ctx, "qa")
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(Equal([]string{a.ID}))
		})

		It("returns an empty list for an unbound agent", func() {
			ids, err := reg.AgentBindingToolIDs(ctx, "nobody")
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(BeEmpty())
		})
	})
})
