package entity

// Schema and table holding the catalog.
const (
	Schema = "art_catalog"
	Table  = "products"
	KeyID  = "item_id"
)

// Fields is a partial or full catalog item keyed by column name.
type Fields map[string]any

// Item is a single row of art_catalog.products as returned by the store.
type Item map[string]any

/*
MySQL schema for the products table:
CREATE SCHEMA IF NOT EXISTS art_catalog;
CREATE TABLE art_catalog.products (
  `item_id` int(11) NOT NULL AUTO_INCREMENT,
  `artist` varchar(255) DEFAULT NULL,
  `title` varchar(255) DEFAULT NULL,
  `description` text,
  `width` double DEFAULT NULL,
  `height` double DEFAULT NULL,
  `price` double DEFAULT NULL,
  `img_url` varchar(1024) DEFAULT NULL,
  `comments` text,
  PRIMARY KEY (`item_id`)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
*/
