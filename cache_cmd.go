package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Show synthesized clip cache stats",
	Long:  paragraph(fmt.Sprintf("\nShow how much synthesized speech the %s holds.", keyword("clip cache"))),
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		cache, err := openCache()
		if err != nil {
			return err
		}
		defer func() { _ = cache.Close() }()

		fmt.Println("memory:", cache.MemoryStats())
		fmt.Println("disk:  ", cache.DiskStats())
		return nil
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every cached clip",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		cache, err := openCache()
		if err != nil {
			return err
		}
		defer func() { _ = cache.Close() }()

		if err := cache.Clear(); err != nil {
			return fmt.Errorf("unable to purge cache: %w", err)
		}
		fmt.Println("Cache purged.")
		return nil
	},
}
